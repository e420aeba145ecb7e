package shipper

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service binds a carrier option code and display name to the rate table that prices it.
// The display name is both the option name created on the platform and the lookup key
// the quotation engine receives back at checkout.
type Service struct {
	Code     string `validate:"required"`
	Name     string `validate:"required"`
	TableKey string `validate:"required"`
}

// Catalog is the ordered set of services installed for every merchant.
type Catalog []Service

// DefaultCatalog is the home-delivery catalog.
var DefaultCatalog = Catalog{
	{Code: "ANDREANI_DOM", Name: "ANDREANI A DOMICILIO", TableKey: "ANDREANI DOM"},
	{Code: "CA_DOM", Name: "CORREO ARGENTINO A DOMICILIO", TableKey: "CA DOM"},
	{Code: "OCA_DOM", Name: "OCA A DOMICILIO", TableKey: "OCA DOM"},
	{Code: "URBANO_DOM", Name: "URBANO A DOMICILIO", TableKey: "URBANO"},
	{Code: "ANDREANI_BIGGER_DOM", Name: "ANDREANI BIGGER A DOM", TableKey: "ANDREANI BIGGER A DOM"},
}

type catalogSpec struct {
	Services []Service `validate:"required,min=1,unique=Code,unique=Name,dive"`
}

var validate = validator.New()

// Validate checks that every service is complete and that codes and names are unique.
func (c Catalog) Validate() error {
	if err := validate.Struct(catalogSpec{Services: c}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return nil
}

// TableFor returns the rate table key for an option display name.
func (c Catalog) TableFor(name string) (string, bool) {
	for _, s := range c {
		if s.Name == name {
			return s.TableKey, true
		}
	}
	return "", false
}

// Names returns the display names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

// Options renders the catalog as the option specs created at install.
func (c Catalog) Options() []CarrierOption {
	opts := make([]CarrierOption, len(c))
	for i, s := range c {
		opts[i] = CarrierOption{
			Code:              s.Code,
			Name:              s.Name,
			Type:              FulfillmentShip,
			AdditionalDays:    0,
			AdditionalCost:    0,
			AllowFreeShipping: true,
			Active:            true,
		}
	}
	return opts
}

// String renders the catalog as a name list.
func (c Catalog) String() string {
	return strings.Join(c.Names(), ", ")
}
