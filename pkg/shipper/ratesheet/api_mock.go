package ratesheet

import (
	"context"
	"sync"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	// Tables holds canned responses by table name; unknown tables return no rows.
	Tables map[string][]Rate

	OnLookup func(ctx context.Context, req *LookupRequest) (*LookupResponse, error)

	mu    sync.Mutex
	calls []LookupRequest
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{Tables: map[string][]Rate{}}
}

// Lookup returns the canned rows for the requested table.
func (m *MockAPIClient) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	m.mu.Lock()
	m.calls = append(m.calls, *req)
	m.mu.Unlock()

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnLookup != nil {
		return m.OnLookup(ctx, req)
	}

	return &LookupResponse{Table: req.Table, Rates: m.Tables[req.Table]}, nil
}

// Calls returns the lookups received so far.
func (m *MockAPIClient) Calls() []LookupRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LookupRequest(nil), m.calls...)
}

// Close is a no-op.
func (m *MockAPIClient) Close() error {
	return nil
}

var _ APIClient = (*MockAPIClient)(nil)
