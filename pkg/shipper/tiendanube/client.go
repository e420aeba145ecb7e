// Package tiendanube provides integration with the Tiendanube platform API and its OAuth install flow.
package tiendanube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const platformName = "tiendanube"

// Config holds Tiendanube configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string // e.g. https://www.tiendanube.com
	TokenURL     string
	APIURL       string // e.g. https://api.tiendanube.com/v1
	RedirectURL  string // public base URL of this service
	UserAgent    string
	Timeout      time.Duration
	UseMock      bool // When true, uses mock API client
}

// Client is the Tiendanube platform client.
// It implements the shipper.Platform interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Tiendanube client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.APIURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Tiendanube client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer(platformName)
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the platform name.
func (c *Client) Name() string {
	return platformName
}

// CreateCarrier registers the shipping carrier for a store.
func (c *Client) CreateCarrier(ctx context.Context, cred shipper.Credential, req *shipper.CreateCarrierRequest) (*shipper.Carrier, error) {
	ctx, span := c.tracer.Start(ctx, "tiendanube.CreateCarrier", trace.WithAttributes(
		attribute.String("store.id", cred.StoreID),
		attribute.String("carrier.name", req.Name),
	))
	defer span.End()

	c.logger.Ctx(ctx).Info("Creating Tiendanube shipping carrier",
		zap.String("store_id", cred.StoreID),
		zap.String("name", req.Name),
		zap.String("callback_url", req.CallbackURL),
	)

	types := req.Types
	if types == "" {
		types = shipper.FulfillmentShip
	}

	apiResp, err := c.apiClient.CreateShippingCarrier(ctx, cred.StoreID, cred.AccessToken, &ShippingCarrierRequest{
		Name:        req.Name,
		CallbackURL: req.CallbackURL,
		Types:       string(types),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Ctx(ctx).Error("Tiendanube API error", zap.Error(err))
		return nil, toShipperError("CreateCarrier", err)
	}

	return carrierToShipper(apiResp), nil
}

// CreateOption registers a single option under an existing carrier.
func (c *Client) CreateOption(ctx context.Context, cred shipper.Credential, carrierID string, opt shipper.CarrierOption) (*shipper.CarrierOption, error) {
	ctx, span := c.tracer.Start(ctx, "tiendanube.CreateOption", trace.WithAttributes(
		attribute.String("store.id", cred.StoreID),
		attribute.String("carrier.id", carrierID),
		attribute.String("option.code", opt.Code),
	))
	defer span.End()

	id, err := strconv.ParseInt(carrierID, 10, 64)
	if err != nil {
		return nil, shipper.NewShipperError(platformName, "INVALID_CARRIER_ID", "carrier id must be numeric").WithCause(err)
	}

	apiResp, err := c.apiClient.CreateCarrierOption(ctx, cred.StoreID, cred.AccessToken, id, optionToAPI(opt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, toShipperError("CreateOption", err)
	}

	return optionToShipper(apiResp, opt.Type), nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func optionToAPI(opt shipper.CarrierOption) *CarrierOptionRequest {
	types := opt.Type
	if types == "" {
		types = shipper.FulfillmentShip
	}
	return &CarrierOptionRequest{
		Code:              opt.Code,
		Name:              opt.Name,
		Types:             string(types),
		AdditionalDays:    opt.AdditionalDays,
		AdditionalCost:    opt.AdditionalCost,
		AllowFreeShipping: opt.AllowFreeShipping,
		Active:            opt.Active,
	}
}

func carrierToShipper(resp *ShippingCarrier) *shipper.Carrier {
	return &shipper.Carrier{
		ID:          strconv.FormatInt(resp.ID, 10),
		Name:        resp.Name,
		CallbackURL: resp.CallbackURL,
		Types:       shipper.FulfillmentType(resp.Types),
		Active:      resp.Active,
	}
}

func optionToShipper(resp *CarrierOptionResponse, typ shipper.FulfillmentType) *shipper.CarrierOption {
	return &shipper.CarrierOption{
		ID:                strconv.FormatInt(resp.ID, 10),
		Code:              resp.Code,
		Name:              resp.Name,
		Type:              typ,
		AdditionalDays:    resp.AdditionalDays,
		AdditionalCost:    resp.AdditionalCost,
		AllowFreeShipping: resp.AllowFreeShipping,
		Active:            resp.Active,
	}
}

func toShipperError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return shipper.NewShipperError(platformName, fmt.Sprintf("HTTP_%d", apiErr.Code), op+" failed").
			WithStatusCode(apiErr.Code).
			WithCause(err)
	}
	// The request may have reached the platform before the connection failed.
	return shipper.NewShipperError(platformName, "TRANSPORT", op+" failed").
		WithCause(err)
}

var _ shipper.Platform = (*Client)(nil)
