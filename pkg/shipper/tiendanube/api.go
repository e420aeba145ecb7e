package tiendanube

import (
	"context"
	"encoding/json"
	"fmt"
)

// APIClient defines the interface for Tiendanube API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateShippingCarrier registers a shipping carrier for a store
	CreateShippingCarrier(ctx context.Context, storeID, accessToken string, req *ShippingCarrierRequest) (*ShippingCarrier, error)

	// CreateCarrierOption registers a service option under a carrier
	CreateCarrierOption(ctx context.Context, storeID, accessToken string, carrierID int64, req *CarrierOptionRequest) (*CarrierOptionResponse, error)
}

// ============================================================================
// API Request/Response Types (match Tiendanube REST API v1 structure)
// ============================================================================

// ShippingCarrierRequest represents a carrier registration.
// POST /{store_id}/shipping_carriers
type ShippingCarrierRequest struct {
	Name        string `json:"name"`
	CallbackURL string `json:"callback_url"`
	Types       string `json:"types"` // "ship", "pickup" or "ship,pickup"
}

// ShippingCarrier represents a registered carrier.
type ShippingCarrier struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	CallbackURL string `json:"callback_url"`
	Types       string `json:"types"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// CarrierOptionRequest represents a carrier option registration.
// POST /{store_id}/shipping_carriers/{carrier_id}/options
type CarrierOptionRequest struct {
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	Types             string  `json:"types"`
	AdditionalDays    int     `json:"additional_days"`
	AdditionalCost    float64 `json:"additional_cost"`
	AllowFreeShipping bool    `json:"allow_free_shipping"`
	Active            bool    `json:"active"`
}

// CarrierOptionResponse represents a registered carrier option.
type CarrierOptionResponse struct {
	ID                int64   `json:"id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	AdditionalDays    int     `json:"additional_days"`
	AdditionalCost    float64 `json:"additional_cost"`
	AllowFreeShipping bool    `json:"allow_free_shipping"`
	Active            bool    `json:"active"`
}

// APIError represents an error from the Tiendanube API.
type APIError struct {
	Code        int             `json:"code"`
	Message     string          `json:"message"`
	Description json.RawMessage `json:"description,omitempty"` // string or field-level map
}

func (e *APIError) Error() string {
	if len(e.Description) > 0 {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, string(e.Description))
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}
