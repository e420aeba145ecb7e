package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Session is the request-scoped view of one browser session.
type Session struct {
	ID   string
	Data Data
	// New is set until the session is first saved. A new session is not
	// held by any browser.
	New bool

	store Store
	ttl   time.Duration
}

// Save persists the session data.
func (s *Session) Save(ctx context.Context) error {
	s.Data.UpdatedAt = time.Now().UTC()
	if err := s.store.Set(ctx, s.ID, s.Data, s.ttl); err != nil {
		return err
	}
	s.New = false
	return nil
}

// Config holds cookie settings.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager binds sessions to browsers through a cookie.
type Manager struct {
	store Store
	cfg   Config
}

// NewManager creates a Manager over store.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "domicilio_session"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &Manager{store: store, cfg: cfg}
}

// Load returns the session named by the request cookie. A missing cookie or an
// expired session yields a fresh empty session. The returned session is never nil;
// err reports store failures, in which case the session is fresh.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		data, err := m.store.Get(r.Context(), c.Value)
		switch {
		case err == nil:
			return m.session(c.Value, *data), nil
		case !errors.Is(err, ErrNotFound):
			fresh, idErr := m.fresh()
			if idErr != nil {
				return nil, idErr
			}
			return fresh, err
		}
	}
	return m.fresh()
}

// Save persists the session and writes its cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := s.Save(ctx); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		// Lax so the cookie rides along on the platform's top-level redirect back.
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.TTL.Seconds()),
	})
	return nil
}

func (m *Manager) fresh() (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	s := m.session(id, Data{})
	s.New = true
	return s, nil
}

func (m *Manager) session(id string, data Data) *Session {
	return &Session{ID: id, Data: data, store: m.store, ttl: m.cfg.TTL}
}

// newID returns a 256-bit random session id.
func newID() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// New returns a detached session backed by store, for callers outside HTTP.
func New(store Store, ttl time.Duration) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, New: true, store: store, ttl: ttl}, nil
}
