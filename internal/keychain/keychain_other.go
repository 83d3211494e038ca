//go:build !darwin

package keychain

import (
	"encoding/base64"
	"errors"

	"github.com/zalando/go-keyring"
)

// SystemStore adapts the platform keyring (Secret Service on Linux,
// Credential Manager on Windows) to the SecureStore interface. The keyring
// API stores strings and has no separate add/update, so payloads are
// base64-encoded and the add/update distinction is emulated with a lookup.
// Synchronizable and accessibility attributes have no equivalent here and
// are ignored.
type SystemStore struct{}

// NewSystemStore creates a keyring-backed secure store.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

func (s *SystemStore) Add(key string, payload []byte, attrs Attributes) Status {
	if _, err := keyring.Get(attrs.Service, key); err == nil {
		return StatusDuplicateItem
	} else if !errors.Is(err, keyring.ErrNotFound) {
		return keyringStatus(err)
	}
	return keyringStatus(keyring.Set(attrs.Service, key, base64.StdEncoding.EncodeToString(payload)))
}

func (s *SystemStore) Update(key string, payload []byte, attrs Attributes) Status {
	if _, err := keyring.Get(attrs.Service, key); err != nil {
		return keyringStatus(err)
	}
	return keyringStatus(keyring.Set(attrs.Service, key, base64.StdEncoding.EncodeToString(payload)))
}

func (s *SystemStore) Delete(key string, attrs Attributes) Status {
	return keyringStatus(keyring.Delete(attrs.Service, key))
}

func (s *SystemStore) CopyMatching(key string, attrs Attributes) ([]byte, Status) {
	val, err := keyring.Get(attrs.Service, key)
	if err != nil {
		return nil, keyringStatus(err)
	}
	payload, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, StatusDecode
	}
	return payload, StatusSuccess
}

// keyringStatus maps keyring errors onto the Status vocabulary. The keyring
// API does not distinguish availability failures from anything else, so
// unknown errors are treated as transient: on Linux the common failure mode
// is the Secret Service collection being locked, and deferring beats failing.
func keyringStatus(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, keyring.ErrNotFound):
		return StatusItemNotFound
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return StatusParam
	default:
		return StatusNotAvailable
	}
}
