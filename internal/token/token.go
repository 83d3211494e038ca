// Package token persists a structured access/refresh token pair through the
// keychain Manager. It owns the encoding contract; all persistence and
// resilience behavior (backlog, flush, per-key serialization) comes from the
// Manager underneath, so this layer adds no locking of its own.
package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/keysafehq/keysafe/internal/keychain"
)

// DefaultKey is the secure-store key the token container lives under.
const DefaultKey = "auth/token-container"

// Container is the credential pair persisted by this subsystem.
type Container struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the access token is usable at the given time.
// A zero ExpiresAt means the token carries no expiry.
func (c *Container) Valid(at time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || at.Before(c.ExpiresAt)
}

// Storage reads and writes the token container through a keychain Manager.
type Storage struct {
	mgr    *keychain.Manager
	key    string
	report keychain.ReportFunc
}

// Option configures a Storage.
type Option func(*Storage)

// WithKey overrides the secure-store key. Used when multiple token slots
// coexist (one key per logical account).
func WithKey(key string) Option {
	return func(s *Storage) {
		s.key = key
	}
}

// WithReport sets the callback for decode failures. Persistence failures are
// already reported by the Manager's own callback.
func WithReport(fn keychain.ReportFunc) Option {
	return func(s *Storage) {
		s.report = fn
	}
}

// NewStorage creates token storage over the given Manager.
func NewStorage(mgr *keychain.Manager, opts ...Option) *Storage {
	s := &Storage{mgr: mgr, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored container, or (nil, nil) when none exists.
// A payload that exists but does not decode is corrupt data.
func (s *Storage) Get() (*Container, error) {
	data, err := s.mgr.Retrieve(s.key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var c Container
	if err := json.Unmarshal(data, &c); err != nil {
		corrupt := fmt.Errorf("%w: %v", keychain.ErrCorruptData, err)
		if s.report != nil {
			s.report(keychain.AccessRetrieve, corrupt)
		}
		return nil, corrupt
	}
	return &c, nil
}

// Save persists the container. A nil container deletes the stored one.
func (s *Storage) Save(c *Container) error {
	if c == nil {
		return s.mgr.Delete(s.key)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding token container: %w", err)
	}
	return s.mgr.Store(s.key, data)
}

// Clear removes the stored container.
func (s *Storage) Clear() error {
	return s.mgr.Delete(s.key)
}
