package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mobapp/domicilio/internal/provisioning"
	"github.com/mobapp/domicilio/internal/quote"
	"github.com/mobapp/domicilio/internal/server"
	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/mobapp/domicilio/pkg/shipper/ratesheet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "domicilio",
	Short:   "Mobapp Domicilio - Tiendanube home-delivery carrier",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the install and shipping rates server",
	RunE:  runServe,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate and print the carrier option catalog",
	RunE:  runCatalog,
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the Postgres rate tables",
}

var ratesMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the rate table schema",
	RunE:  runRatesMigrate,
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load a YAML rate document into Postgres",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesImport,
}

func init() {
	ratesCmd.AddCommand(ratesMigrateCmd, ratesImportCmd)
	rootCmd.AddCommand(serveCmd, catalogCmd, ratesCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	// The option names created at install are the names quotation resolves.
	catalog := shipper.DefaultCatalog
	if err := catalog.Validate(); err != nil {
		return err
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	sessions, closeSessions, err := initSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	identity, platform := initPlatform(cfg, logger, tracer)

	rates, err := initRates(ctx, cfg, logger, tracer)
	if err != nil {
		return err
	}
	defer rates.Close()

	workflow := provisioning.New(provisioning.Config{
		CarrierName: cfg.CarrierName,
		PublicURL:   cfg.PublicURL,
		Catalog:     catalog,
		Settler: provisioning.Settler{
			Delay:           cfg.SettleDelay,
			MaxTries:        cfg.SettleMaxTries,
			InitialInterval: provisioning.DefaultSettler().InitialInterval,
			MaxInterval:     provisioning.DefaultSettler().MaxInterval,
		},
		OptionRate: cfg.OptionRate,
	}, identity, platform, logger, metrics, tracer)

	engine := quote.New(quote.Config{
		Catalog:        catalog,
		Currency:       cfg.QuoteCurrency,
		DeliveryWindow: cfg.DeliveryWindow,
		Concurrency:    cfg.QuoteConcurrency,
	}, rates, logger, metrics, tracer)

	logger.Info("Starting Mobapp Domicilio",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("public_url", cfg.PublicURL),
		zap.String("rates_backend", rates.Name()),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Stringer("catalog", catalog),
	)

	// Start HTTP server
	// The confirmation page must reach the merchant even on the slowest install.
	writeTimeout := workflow.Bound(cfg.ExternalTimeout) + 30*time.Second
	srv := server.New(server.Config{Port: cfg.Port, WriteTimeout: writeTimeout}, sessions, workflow, engine, logger, metrics)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	catalog := shipper.DefaultCatalog
	if err := catalog.Validate(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tRATE TABLE")
	for _, svc := range catalog {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", svc.Code, svc.Name, svc.TableKey)
	}
	return tw.Flush()
}

func runRatesMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openRateDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "rate table schema ready")
	return nil
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	doc, err := ratesheet.LoadDocument(args[0])
	if err != nil {
		return err
	}

	db, err := openRateDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	tables := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, name := range tables {
		if err := db.Insert(ctx, name, doc.Tables[name]); err != nil {
			return fmt.Errorf("importing table %q: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %q\n", len(doc.Tables[name]), name)
	}

	// Warn about catalog entries the document cannot price.
	for _, svc := range shipper.DefaultCatalog {
		if _, ok := doc.Tables[svc.TableKey]; !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: no table %q for option %q\n", svc.TableKey, svc.Name)
		}
	}
	return nil
}
