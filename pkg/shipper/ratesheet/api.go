package ratesheet

import (
	"context"
)

// APIClient defines the interface for rate table backends.
// This abstraction allows for mock implementations during testing
// and HTTP, Postgres or file implementations in production.
type APIClient interface {
	// Lookup fetches the rows of a table that apply to a weight and postal code
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error)

	// Close releases backend resources
	Close() error
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// LookupRequest represents a rate table query.
// GET /rates?table=&weight=&postal_code=
type LookupRequest struct {
	Table      string  `json:"table"`
	WeightKg   float64 `json:"weight"`      // kg, unrounded
	PostalCode string  `json:"postal_code"` // passed through as received
}

// LookupResponse represents the rows returned for a table.
type LookupResponse struct {
	Table string `json:"table,omitempty"`
	Rates []Rate `json:"rates"`
}

// Rate represents a single candidate row.
type Rate struct {
	Name string  `json:"name" db:"name"`
	Cost float64 `json:"cost" db:"cost"`
}

// Row is a stored rate table row: the cost of a service up to WeightMax kg
// for postal codes between PostalFrom and PostalTo (empty bounds match any code).
type Row struct {
	Name       string  `yaml:"name" db:"name"`
	PostalFrom string  `yaml:"postal_from" db:"postal_from"`
	PostalTo   string  `yaml:"postal_to" db:"postal_to"`
	WeightMax  float64 `yaml:"weight_max" db:"weight_max"`
	Cost       float64 `yaml:"cost" db:"cost"`
}

// Matches reports whether the row covers the weight and postal code.
// Postal bounds compare as strings; codes are not normalized.
func (r Row) Matches(weightKg float64, postalCode string) bool {
	if weightKg > r.WeightMax {
		return false
	}
	if r.PostalFrom != "" && postalCode < r.PostalFrom {
		return false
	}
	if r.PostalTo != "" && postalCode > r.PostalTo {
		return false
	}
	return true
}

// APIError represents an error from a rate table backend.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
