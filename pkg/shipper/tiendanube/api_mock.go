package tiendanube

import (
	"context"
	"sync"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShippingCarrier func(ctx context.Context, storeID, accessToken string, req *ShippingCarrierRequest) (*ShippingCarrier, error)
	OnCreateCarrierOption   func(ctx context.Context, storeID, accessToken string, carrierID int64, req *CarrierOptionRequest) (*CarrierOptionResponse, error)

	mu             sync.Mutex
	nextID         int64
	carrierCalls   []ShippingCarrierRequest
	optionRequests []CarrierOptionRequest
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{nextID: 1000}
}

// CreateShippingCarrier returns a mock carrier.
func (m *MockAPIClient) CreateShippingCarrier(ctx context.Context, storeID, accessToken string, req *ShippingCarrierRequest) (*ShippingCarrier, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	m.mu.Lock()
	m.carrierCalls = append(m.carrierCalls, *req)
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	if m.SimulateErrors {
		return nil, &APIError{Code: 500, Message: "Simulated API error"}
	}

	if m.OnCreateShippingCarrier != nil {
		return m.OnCreateShippingCarrier(ctx, storeID, accessToken, req)
	}

	return &ShippingCarrier{
		ID:          id,
		Name:        req.Name,
		Active:      true,
		CallbackURL: req.CallbackURL,
		Types:       req.Types,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}, nil
}

// CreateCarrierOption returns a mock carrier option.
func (m *MockAPIClient) CreateCarrierOption(ctx context.Context, storeID, accessToken string, carrierID int64, req *CarrierOptionRequest) (*CarrierOptionResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	m.mu.Lock()
	m.optionRequests = append(m.optionRequests, *req)
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	if m.SimulateErrors {
		return nil, &APIError{Code: 500, Message: "Simulated API error"}
	}

	if m.OnCreateCarrierOption != nil {
		return m.OnCreateCarrierOption(ctx, storeID, accessToken, carrierID, req)
	}

	return &CarrierOptionResponse{
		ID:                id,
		Code:              req.Code,
		Name:              req.Name,
		AdditionalDays:    req.AdditionalDays,
		AdditionalCost:    req.AdditionalCost,
		AllowFreeShipping: req.AllowFreeShipping,
		Active:            req.Active,
	}, nil
}

// CarrierRequests returns the carrier registrations received so far.
func (m *MockAPIClient) CarrierRequests() []ShippingCarrierRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ShippingCarrierRequest(nil), m.carrierCalls...)
}

// OptionRequests returns the option registrations received so far.
func (m *MockAPIClient) OptionRequests() []CarrierOptionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CarrierOptionRequest(nil), m.optionRequests...)
}

var _ APIClient = (*MockAPIClient)(nil)
