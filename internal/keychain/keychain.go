// Package keychain provides resilient credential storage on top of the OS
// secure item store.
//
// Items are stored as generic passwords with:
//   - Service: "com.keysafe" by default (all keysafe items share one service)
//   - Account: the item key (e.g. "auth/token-container")
//   - Label: "keysafe: <key>" (for Keychain Access.app visibility)
//
// The OS store can be transiently unavailable (machine locked, store busy,
// interaction required). The Manager absorbs those failures into an
// in-memory write-behind Backlog and replays pending writes when Flush is
// triggered, so callers of Store never observe availability failures as
// hard errors.
package keychain

// Accessibility controls when stored items are readable.
type Accessibility int

const (
	// AccessibleWhenUnlockedThisDeviceOnly: readable only while the device
	// is unlocked, never synced or restored to another device. The default.
	AccessibleWhenUnlockedThisDeviceOnly Accessibility = iota

	// AccessibleWhenUnlocked: readable while unlocked, may migrate in backups.
	AccessibleWhenUnlocked

	// AccessibleAfterFirstUnlock: readable any time after the first unlock
	// since boot. Used for items background processes must reach.
	AccessibleAfterFirstUnlock

	// AccessibleAfterFirstUnlockThisDeviceOnly: as above, device-bound.
	AccessibleAfterFirstUnlockThisDeviceOnly
)

// Attributes is the fixed classification applied to every item a Manager
// touches. Chosen at construction time, never varied per call.
type Attributes struct {
	Service        string
	Synchronizable bool
	Accessibility  Accessibility
}

// DefaultService is the secure-store service attribute for keysafe items.
const DefaultService = "com.keysafe"

// DefaultAttributes returns the attribute set used when none is configured:
// the keysafe service, not synchronizable, unlocked-this-device-only.
func DefaultAttributes() Attributes {
	return Attributes{
		Service:       DefaultService,
		Accessibility: AccessibleWhenUnlockedThisDeviceOnly,
	}
}

// SecureStore is the thin adapter over the platform secure item store.
// All four operations are synchronous and may block on OS I/O. Each reports
// its outcome as a Status rather than an error so callers can distinguish
// logical outcomes (not found, duplicate) from availability failures.
type SecureStore interface {
	// Add inserts a new item. StatusDuplicateItem if the key already exists.
	Add(key string, payload []byte, attrs Attributes) Status

	// Update overwrites an existing item's payload. StatusItemNotFound if
	// no item exists for the key.
	Update(key string, payload []byte, attrs Attributes) Status

	// Delete removes an item. StatusItemNotFound if absent; callers treat
	// that as a benign no-op.
	Delete(key string, attrs Attributes) Status

	// CopyMatching looks up a single item's payload.
	CopyMatching(key string, attrs Attributes) ([]byte, Status)
}

// Lister is implemented by backends that can enumerate stored keys.
// The Secret Service / Credential Manager backend cannot.
type Lister interface {
	List(attrs Attributes) ([]string, error)
}
