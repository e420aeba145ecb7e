package shipper

// FulfillmentType is the delivery mode of a carrier option.
type FulfillmentType string

const (
	// FulfillmentShip is home delivery, the only mode this service quotes.
	FulfillmentShip FulfillmentType = "ship"

	// FulfillmentPickup is delivery to a pickup point.
	FulfillmentPickup FulfillmentType = "pickup"
)

// Credential identifies a merchant install.
type Credential struct {
	StoreID     string
	AccessToken string
}

// Valid reports whether both the store id and access token are present.
func (c Credential) Valid() bool {
	return c.StoreID != "" && c.AccessToken != ""
}

// Carrier is a shipping carrier registered on the platform.
type Carrier struct {
	ID          string
	Name        string
	CallbackURL string
	Types       FulfillmentType
	Active      bool
}

// CarrierOption is a named service option offered by a carrier.
type CarrierOption struct {
	ID                string
	Code              string
	Name              string
	Type              FulfillmentType
	AdditionalDays    int
	AdditionalCost    float64
	AllowFreeShipping bool
	Active            bool
}

// RateRow is a candidate row returned by a rate table lookup.
type RateRow struct {
	Name string
	Cost float64
}

// ============================================================================
// Request Types
// ============================================================================

// CreateCarrierRequest is the request for registering a carrier.
type CreateCarrierRequest struct {
	Name        string
	CallbackURL string
	Types       FulfillmentType
}
