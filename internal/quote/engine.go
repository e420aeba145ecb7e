package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReservedMarker flags options served by another fulfillment mode (branch pickup).
const ReservedMarker = "SUCURSAL"

// Config holds quotation settings.
type Config struct {
	Catalog        shipper.Catalog
	Currency       string
	DeliveryWindow time.Duration
	Reference      string
	Concurrency    int // concurrent rate lookups per request
}

// DefaultConfig returns the settings of the current deployment.
func DefaultConfig() Config {
	return Config{
		Catalog:        shipper.DefaultCatalog,
		Currency:       "ARS",
		DeliveryWindow: 7 * 24 * time.Hour,
		Reference:      "ref123",
		Concurrency:    4,
	}
}

// Engine resolves declared options into rates.
type Engine struct {
	cfg     Config
	rates   shipper.RateTable
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates an Engine. Zero fields of cfg take their DefaultConfig value.
func New(cfg Config, rates shipper.RateTable, logger *otelzap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Engine {
	def := DefaultConfig()
	if cfg.Catalog == nil {
		cfg.Catalog = def.Catalog
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.DeliveryWindow == 0 {
		cfg.DeliveryWindow = def.DeliveryWindow
	}
	if cfg.Reference == "" {
		cfg.Reference = def.Reference
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if tracer == nil {
		tracer = otel.Tracer("quote")
	}

	return &Engine{
		cfg:     cfg,
		rates:   rates,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
	}
}

// lookup is the outcome of resolving one declared option.
type lookup struct {
	option   Option
	table    string
	row      *shipper.RateRow
	err      error
	panicked bool
}

// Quote prices req. It never fails: a nil request or one without a postal code
// yields no rates, a failed lookup drops that option and sets the error marker,
// and a panic yields no rates with the error marker.
func (e *Engine) Quote(ctx context.Context, req *Request) (resp *Response) {
	ctx, span := e.tracer.Start(ctx, "quote.Quote")
	defer span.End()

	log := e.logger.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			log.Error("Recovered panic while quoting", zap.Any("panic", r))
			resp = Failed()
		}
		e.metrics.RecordQuote(len(resp.Rates))
	}()

	if req == nil {
		log.Error("Empty rates request")
		return Empty()
	}

	postal := req.PostalCode()
	weight := req.TotalWeightKg()
	span.SetAttributes(
		attribute.String("quote.postal_code", postal),
		attribute.Float64("quote.weight_kg", weight),
	)
	log.Info("Quoting shipment",
		zap.String("postal_code", postal),
		zap.String("weight_kg", strconv.FormatFloat(weight, 'f', 2, 64)),
	)

	if postal == "" {
		log.Warn("Rates request without postal code")
		return Empty()
	}

	results := e.resolve(ctx, eligible(req.Options()), weight, postal)

	now := e.now().UTC()
	resp = Empty()
	for _, res := range results {
		switch {
		case res.panicked:
			span.SetStatus(codes.Error, res.err.Error())
			log.Error("Rate lookup panicked", zap.String("option", res.option.Name), zap.Error(res.err))
			return Failed()
		case res.err != nil:
			resp.Error = InternalErrorMessage
			log.Error("Rate lookup failed",
				zap.String("option", res.option.Name),
				zap.String("table", res.table),
				zap.Error(res.err),
			)
		case res.table == "":
			log.Debug("Option has no rate table", zap.String("option", res.option.Name))
		case res.row == nil:
			log.Warn("No rate row matches option",
				zap.String("option", res.option.Name),
				zap.String("table", res.table),
			)
		default:
			resp.Rates = append(resp.Rates, e.rate(res.option, *res.row, now))
		}
	}

	if len(resp.Rates) == 0 {
		log.Info("No rates for shipment", zap.String("postal_code", postal))
	}
	return resp
}

// resolve looks up every option concurrently. Results keep the order of options.
func (e *Engine) resolve(ctx context.Context, options []Option, weight float64, postal string) []lookup {
	results := make([]lookup, len(options))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for i, opt := range options {
		results[i].option = opt
		table, ok := e.cfg.Catalog.TableFor(opt.Name)
		if !ok {
			continue
		}
		results[i].table = table

		res := &results[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					res.panicked = true
					res.err = fmt.Errorf("panic looking up %q: %v", table, r)
				}
			}()
			res.row, res.err = e.match(ctx, opt, table, weight, postal)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (e *Engine) match(ctx context.Context, opt Option, table string, weight float64, postal string) (*shipper.RateRow, error) {
	start := time.Now()
	rows, err := e.rates.Lookup(ctx, table, weight, postal)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		e.metrics.RecordLookup(table, "error", elapsed)
		return nil, err
	}

	want := normalize(opt.Name)
	for i := range rows {
		if normalize(rows[i].Name) == want {
			e.metrics.RecordLookup(table, "hit", elapsed)
			return &rows[i], nil
		}
	}
	e.metrics.RecordLookup(table, "miss", elapsed)
	return nil, nil
}

func (e *Engine) rate(opt Option, row shipper.RateRow, now time.Time) Rate {
	return Rate{
		ID:              opt.ID,
		Name:            opt.Name,
		Code:            opt.Code,
		Price:           row.Cost,
		PriceMerchant:   row.Cost,
		Currency:        e.cfg.Currency,
		Type:            shipper.FulfillmentShip,
		MinDeliveryDate: now,
		MaxDeliveryDate: now.Add(e.cfg.DeliveryWindow),
		PhoneRequired:   false,
		Reference:       e.cfg.Reference,
	}
}

// eligible drops options without a string name and options carrying the reserved marker.
func eligible(options []Option) []Option {
	out := make([]Option, 0, len(options))
	for _, o := range options {
		if !o.Named() {
			continue
		}
		if strings.Contains(strings.ToUpper(o.Name), ReservedMarker) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
