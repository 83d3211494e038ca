//go:build integration

package keychain

import (
	"bytes"
	"testing"
)

// Integration tests use the real platform secure store.
// Run with: go test -tags integration ./internal/keychain/
//
// On macOS this requires an unlocked login Keychain and an interactive
// session (first run may prompt for Keychain access approval).

func integrationAttrs() Attributes {
	return Attributes{
		Service:       "com.keysafe.test",
		Accessibility: AccessibleWhenUnlockedThisDeviceOnly,
	}
}

func cleanupIntegration(t *testing.T, s *SystemStore, keys ...string) {
	t.Helper()
	for _, k := range keys {
		s.Delete(k, integrationAttrs())
	}
}

func TestSystemStoreAddCopyDelete(t *testing.T) {
	s := NewSystemStore()
	attrs := integrationAttrs()
	key := "test/integration-add-copy"
	defer cleanupIntegration(t, s, key)

	if st := s.Add(key, []byte("hello-store"), attrs); st != StatusSuccess {
		t.Fatalf("Add: %v", st)
	}

	payload, st := s.CopyMatching(key, attrs)
	if st != StatusSuccess {
		t.Fatalf("CopyMatching: %v", st)
	}
	if !bytes.Equal(payload, []byte("hello-store")) {
		t.Errorf("expected hello-store, got %q", payload)
	}

	if st := s.Delete(key, attrs); st != StatusSuccess {
		t.Fatalf("Delete: %v", st)
	}
	if _, st := s.CopyMatching(key, attrs); st != StatusItemNotFound {
		t.Errorf("expected not found after delete, got %v", st)
	}
}

func TestSystemStoreDuplicateAdd(t *testing.T) {
	s := NewSystemStore()
	attrs := integrationAttrs()
	key := "test/integration-duplicate"
	defer cleanupIntegration(t, s, key)

	s.Add(key, []byte("first"), attrs)
	if st := s.Add(key, []byte("second"), attrs); st != StatusDuplicateItem {
		t.Errorf("expected duplicate status, got %v", st)
	}
	if st := s.Update(key, []byte("second"), attrs); st != StatusSuccess {
		t.Errorf("Update: %v", st)
	}
}

func TestManagerAgainstSystemStore(t *testing.T) {
	s := NewSystemStore()
	attrs := integrationAttrs()
	mgr := NewManager(s, attrs)
	key := "test/integration-manager"
	defer cleanupIntegration(t, s, key)

	if err := mgr.Store(key, []byte("round-trip")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := mgr.Store(key, []byte("round-trip-2")); err != nil {
		t.Fatalf("re-Store: %v", err)
	}

	got, err := mgr.Retrieve(key)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !bytes.Equal(got, []byte("round-trip-2")) {
		t.Errorf("expected round-trip-2, got %q", got)
	}

	if err := mgr.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mgr.Delete(key); err != nil {
		t.Fatalf("idempotent Delete: %v", err)
	}
}
