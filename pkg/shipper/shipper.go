// Package shipper provides the domain contracts shared by carrier provisioning
// and rate quotation.
package shipper

import (
	"context"
)

// Platform defines the commerce platform operations needed to install a carrier.
type Platform interface {
	// CreateCarrier registers the shipping carrier for a store and returns it with its remote id.
	CreateCarrier(ctx context.Context, cred Credential, req *CreateCarrierRequest) (*Carrier, error)

	// CreateOption registers a single service option under an existing carrier.
	CreateOption(ctx context.Context, cred Credential, carrierID string, opt CarrierOption) (*CarrierOption, error)
}

// Identity exchanges an OAuth authorization code for merchant credentials.
type Identity interface {
	// AuthorizeURL returns the platform page the merchant is sent to when installing,
	// carrying state so the callback can be tied to the session that started it.
	AuthorizeURL(state string) string

	// Exchange trades an authorization code for an access token and store id.
	Exchange(ctx context.Context, code string) (*Credential, error)
}

// RateTable resolves candidate rate rows for a service table.
type RateTable interface {
	// Name returns the backend identifier (e.g., "http", "postgres", "file").
	Name() string

	// Lookup returns the rows of table that apply to the given weight and postal code.
	Lookup(ctx context.Context, table string, weightKg float64, postalCode string) ([]RateRow, error)
}
