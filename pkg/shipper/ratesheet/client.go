// Package ratesheet provides the rate table lookups that price carrier options.
package ratesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const sourceName = "ratesheet"

const codeTableNotFound = "TABLE_NOT_FOUND"

// Backend names accepted by Config.Backend.
const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMock     = "mock"
)

// Config holds rate table configuration.
type Config struct {
	Backend     string
	BaseURL     string // http
	APIKey      string // http
	DatabaseURL string // postgres
	FilePath    string // file
	Timeout     time.Duration
}

// Client is the rate table client.
// It implements the shipper.RateTable interface and delegates
// lookups to the underlying APIClient (http, postgres, file or mock).
type Client struct {
	backend   string
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new rate table client for the configured backend.
func New(ctx context.Context, cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	var (
		apiClient APIClient
		err       error
	)

	switch cfg.Backend {
	case BackendHTTP:
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	case BackendPostgres:
		apiClient, err = NewPostgresAPIClient(ctx, cfg.DatabaseURL)
	case BackendFile:
		apiClient, err = NewFileAPIClient(cfg.FilePath)
	case BackendMock:
		apiClient = NewMockAPIClient()
	default:
		return nil, fmt.Errorf("unknown rate table backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewWithAPIClient(cfg.Backend, apiClient, logger, tracer), nil
}

// NewWithAPIClient creates a new rate table client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(backend string, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer(sourceName)
	}
	return &Client{
		backend:   backend,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.backend
}

// Lookup returns the candidate rows of table for the weight and postal code.
func (c *Client) Lookup(ctx context.Context, table string, weightKg float64, postalCode string) ([]shipper.RateRow, error) {
	ctx, span := c.tracer.Start(ctx, "ratesheet.Lookup", trace.WithAttributes(
		attribute.String("rate.table", table),
		attribute.Float64("rate.weight_kg", weightKg),
		attribute.String("rate.backend", c.backend),
	))
	defer span.End()

	resp, err := c.apiClient.Lookup(ctx, &LookupRequest{
		Table:      table,
		WeightKg:   weightKg,
		PostalCode: postalCode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Ctx(ctx).Error("Rate table lookup failed",
			zap.String("table", table),
			zap.String("backend", c.backend),
			zap.Error(err),
		)
		return nil, toShipperError(table, err)
	}

	rows := make([]shipper.RateRow, len(resp.Rates))
	for i, r := range resp.Rates {
		rows[i] = shipper.RateRow{Name: r.Name, Cost: r.Cost}
	}
	span.SetAttributes(attribute.Int("rate.rows", len(rows)))

	return rows, nil
}

// Close releases the backend.
func (c *Client) Close() error {
	return c.apiClient.Close()
}

func toShipperError(table string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeTableNotFound {
		return fmt.Errorf("%w: %s", shipper.ErrTableNotFound, table)
	}
	return shipper.NewShipperError(sourceName, "LOOKUP", "looking up "+table).WithCause(err)
}

var _ shipper.RateTable = (*Client)(nil)
