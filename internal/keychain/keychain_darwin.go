//go:build darwin

package keychain

import (
	"errors"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"
)

// SystemStore adapts the macOS Keychain to the SecureStore interface.
// Items are generic passwords; the Status vocabulary maps directly onto
// the Security framework's OSStatus codes.
type SystemStore struct{}

// NewSystemStore creates a Keychain-backed secure store.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

func (s *SystemStore) Add(key string, payload []byte, attrs Attributes) Status {
	item := gokeychain.NewItem()
	item.SetSecClass(gokeychain.SecClassGenericPassword)
	item.SetService(attrs.Service)
	item.SetAccount(key)
	item.SetLabel(fmt.Sprintf("keysafe: %s", key))
	item.SetData(payload)
	if attrs.Synchronizable {
		item.SetSynchronizable(gokeychain.SynchronizableYes)
	} else {
		item.SetSynchronizable(gokeychain.SynchronizableNo)
	}
	item.SetAccessible(accessible(attrs.Accessibility))

	return statusFor(gokeychain.AddItem(item))
}

func (s *SystemStore) Update(key string, payload []byte, attrs Attributes) Status {
	query := gokeychain.NewItem()
	query.SetSecClass(gokeychain.SecClassGenericPassword)
	query.SetService(attrs.Service)
	query.SetAccount(key)

	update := gokeychain.NewItem()
	update.SetData(payload)

	return statusFor(gokeychain.UpdateItem(query, update))
}

func (s *SystemStore) Delete(key string, attrs Attributes) Status {
	item := gokeychain.NewItem()
	item.SetSecClass(gokeychain.SecClassGenericPassword)
	item.SetService(attrs.Service)
	item.SetAccount(key)

	return statusFor(gokeychain.DeleteItem(item))
}

func (s *SystemStore) CopyMatching(key string, attrs Attributes) ([]byte, Status) {
	query := gokeychain.NewItem()
	query.SetSecClass(gokeychain.SecClassGenericPassword)
	query.SetService(attrs.Service)
	query.SetAccount(key)
	query.SetMatchLimit(gokeychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := gokeychain.QueryItem(query)
	if err != nil {
		return nil, statusFor(err)
	}
	if len(results) == 0 {
		return nil, StatusItemNotFound
	}
	return results[0].Data, StatusSuccess
}

// List returns all item keys stored under the service.
func (s *SystemStore) List(attrs Attributes) ([]string, error) {
	accounts, err := gokeychain.GetGenericPasswordAccounts(attrs.Service)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain list: %w", err)
	}
	return accounts, nil
}

// statusFor maps a Security framework error onto the Status vocabulary.
func statusFor(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var kcErr gokeychain.Error
	if !errors.As(err, &kcErr) {
		return StatusUnexpected
	}
	switch kcErr {
	case gokeychain.ErrorItemNotFound:
		return StatusItemNotFound
	case gokeychain.ErrorDuplicateItem:
		return StatusDuplicateItem
	case gokeychain.ErrorAuthFailed:
		return StatusAuthFailed
	case gokeychain.ErrorInteractionNotAllowed:
		return StatusInteractionNotAllowed
	case gokeychain.ErrorNotAvailable, gokeychain.ErrorNoSuchKeychain:
		return StatusNotAvailable
	case gokeychain.ErrorDecode:
		return StatusDecode
	case gokeychain.ErrorParam:
		return StatusParam
	default:
		return StatusUnexpected
	}
}

func accessible(a Accessibility) gokeychain.Accessible {
	switch a {
	case AccessibleWhenUnlocked:
		return gokeychain.AccessibleWhenUnlocked
	case AccessibleAfterFirstUnlock:
		return gokeychain.AccessibleAfterFirstUnlock
	case AccessibleAfterFirstUnlockThisDeviceOnly:
		return gokeychain.AccessibleAfterFirstUnlockThisDeviceOnly
	default:
		return gokeychain.AccessibleWhenUnlockedThisDeviceOnly
	}
}
