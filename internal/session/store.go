// Package session carries short-lived install state between the authorization
// redirect and the OAuth callback.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Data is the state kept for one browser session.
type Data struct {
	OAuthState  string    `json:"oauth_state,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	StoreID     string    `json:"store_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists session data by id.
type Store interface {
	// Get returns the data for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Data, error)

	// Set stores data under id for ttl.
	Set(ctx context.Context, id string, data Data, ttl time.Duration) error

	// Delete removes id.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the data for id, or ErrNotFound when missing or expired.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	data := e.data
	return &data, nil
}

// Set stores data under id. A zero ttl never expires.
func (s *MemoryStore) Set(ctx context.Context, id string, data Data, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[id] = memoryEntry{data: data, expiresAt: expiresAt}
	return nil
}

// Delete removes id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
