// Package mock provides in-memory implementations of the shipper contracts for testing.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mobapp/domicilio/pkg/shipper"
)

// Platform is a mock commerce platform that records every call.
type Platform struct {
	// FailCarrier makes CreateCarrier return this error.
	FailCarrier error
	// FailOptions makes CreateOption fail for the listed option codes.
	FailOptions map[string]error

	mu      sync.Mutex
	nextID  int
	carrier []shipper.CreateCarrierRequest
	options []shipper.CarrierOption
	creds   []shipper.Credential
}

// NewPlatform creates a new mock platform.
func NewPlatform() *Platform {
	return &Platform{FailOptions: map[string]error{}}
}

// CreateCarrier records the request and returns a carrier with a sequential id.
func (p *Platform) CreateCarrier(ctx context.Context, cred shipper.Credential, req *shipper.CreateCarrierRequest) (*shipper.Carrier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.carrier = append(p.carrier, *req)
	p.creds = append(p.creds, cred)
	if p.FailCarrier != nil {
		return nil, p.FailCarrier
	}

	p.nextID++
	return &shipper.Carrier{
		ID:          fmt.Sprintf("%d", 1000+p.nextID),
		Name:        req.Name,
		CallbackURL: req.CallbackURL,
		Types:       req.Types,
		Active:      true,
	}, nil
}

// CreateOption records the option and fails if its code is listed in FailOptions.
func (p *Platform) CreateOption(ctx context.Context, cred shipper.Credential, carrierID string, opt shipper.CarrierOption) (*shipper.CarrierOption, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.options = append(p.options, opt)
	if err, ok := p.FailOptions[opt.Code]; ok {
		return nil, err
	}

	p.nextID++
	created := opt
	created.ID = fmt.Sprintf("%s-%d", carrierID, p.nextID)
	return &created, nil
}

// CarrierCalls returns the number of CreateCarrier calls.
func (p *Platform) CarrierCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.carrier)
}

// CarrierRequests returns the recorded carrier requests.
func (p *Platform) CarrierRequests() []shipper.CreateCarrierRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shipper.CreateCarrierRequest(nil), p.carrier...)
}

// OptionCalls returns the options passed to CreateOption, in call order.
func (p *Platform) OptionCalls() []shipper.CarrierOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shipper.CarrierOption(nil), p.options...)
}

// Credentials returns the credentials used for carrier creation.
func (p *Platform) Credentials() []shipper.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shipper.Credential(nil), p.creds...)
}

// Identity is a mock OAuth identity provider.
type Identity struct {
	Credential shipper.Credential
	Err        error

	mu    sync.Mutex
	codes []string
}

// NewIdentity creates a mock identity that answers every exchange with cred.
func NewIdentity(cred shipper.Credential) *Identity {
	return &Identity{Credential: cred}
}

// AuthorizeURL returns a fake authorize URL.
func (i *Identity) AuthorizeURL(state string) string {
	return "https://platform.mock/apps/test/authorize?state=" + state
}

// Exchange records the code and returns the configured credential.
func (i *Identity) Exchange(ctx context.Context, code string) (*shipper.Credential, error) {
	i.mu.Lock()
	i.codes = append(i.codes, code)
	i.mu.Unlock()

	if i.Err != nil {
		return nil, i.Err
	}
	cred := i.Credential
	return &cred, nil
}

// Codes returns the codes exchanged so far.
func (i *Identity) Codes() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.codes...)
}

// RateTable is a mock rate table keyed by table name.
type RateTable struct {
	Rows map[string][]shipper.RateRow
	// Errors makes Lookup fail for the listed tables.
	Errors map[string]error
	// Panics makes Lookup panic for the listed tables.
	Panics map[string]bool

	mu    sync.Mutex
	calls []Lookup
}

// Lookup is a recorded RateTable call.
type Lookup struct {
	Table      string
	WeightKg   float64
	PostalCode string
}

// NewRateTable creates an empty mock rate table.
func NewRateTable() *RateTable {
	return &RateTable{
		Rows:   map[string][]shipper.RateRow{},
		Errors: map[string]error{},
		Panics: map[string]bool{},
	}
}

// Name returns "mock".
func (r *RateTable) Name() string {
	return "mock"
}

// Lookup returns the rows configured for table.
func (r *RateTable) Lookup(ctx context.Context, table string, weightKg float64, postalCode string) ([]shipper.RateRow, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Lookup{Table: table, WeightKg: weightKg, PostalCode: postalCode})
	r.mu.Unlock()

	if r.Panics[table] {
		panic("mock rate table panic: " + strings.ToLower(table))
	}
	if err, ok := r.Errors[table]; ok {
		return nil, err
	}
	return r.Rows[table], nil
}

// Calls returns the recorded lookups.
func (r *RateTable) Calls() []Lookup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Lookup(nil), r.calls...)
}

var (
	_ shipper.Platform  = (*Platform)(nil)
	_ shipper.Identity  = (*Identity)(nil)
	_ shipper.RateTable = (*RateTable)(nil)
)
