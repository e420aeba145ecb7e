package main

import (
	"context"
	"fmt"

	"github.com/mobapp/domicilio/internal/config"
	"github.com/mobapp/domicilio/internal/session"
	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/mobapp/domicilio/pkg/shipper/mock"
	"github.com/mobapp/domicilio/pkg/shipper/ratesheet"
	"github.com/mobapp/domicilio/pkg/shipper/tiendanube"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

// initTracer returns a nil tracer when tracing is disabled; components then use
// the global no-op provider.
func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Attributes()...)
}

func initSessions(ctx context.Context, cfg *config.Config) (*session.Manager, func() error, error) {
	var (
		store   session.Store
		closeFn = func() error { return nil }
	)

	switch cfg.SessionBackend {
	case config.SessionRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = rs, rs.Close
	default:
		store = session.NewMemoryStore()
	}

	return session.NewManager(store, session.Config{
		TTL:    cfg.SessionTTL,
		Secure: cfg.SessionSecure,
	}), closeFn, nil
}

func initPlatform(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (shipper.Identity, shipper.Platform) {
	tnCfg := tiendanube.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		APIURL:       cfg.APIURL,
		RedirectURL:  cfg.PublicURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.ExternalTimeout,
		UseMock:      cfg.UseMock,
	}

	platform := tiendanube.New(tnCfg, logger, tracer)
	if cfg.UseMock {
		return mock.NewIdentity(shipper.Credential{StoreID: "1", AccessToken: "mock-token"}), platform
	}
	return tiendanube.NewIdentity(tnCfg, logger), platform
}

func initRates(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*ratesheet.Client, error) {
	return ratesheet.New(ctx, ratesheet.Config{
		Backend:     cfg.RatesBackend,
		BaseURL:     cfg.RatesBaseURL,
		APIKey:      cfg.RatesAPIKey,
		DatabaseURL: cfg.DatabaseURL,
		FilePath:    cfg.RatesFile,
		Timeout:     cfg.ExternalTimeout,
	}, logger, tracer)
}

func openRateDatabase(ctx context.Context) (*ratesheet.PostgresAPIClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return ratesheet.NewPostgresAPIClient(ctx, cfg.DatabaseURL)
}
