package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keysafehq/keysafe/internal/keychain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `service: com.example.vault
synchronizable: true
accessibility: after-first-unlock
audit_log: /tmp/keysafe-audit.log
flush:
  interval: 1m
  min_gap: 10s
  watch_paths:
    - /var/run/session
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service != "com.example.vault" {
		t.Errorf("Service = %q, want %q", cfg.Service, "com.example.vault")
	}
	if !cfg.Synchronizable {
		t.Error("Synchronizable = false, want true")
	}
	if cfg.AuditLog != "/tmp/keysafe-audit.log" {
		t.Errorf("AuditLog = %q", cfg.AuditLog)
	}
	if len(cfg.Flush.WatchPaths) != 1 || cfg.Flush.WatchPaths[0] != "/var/run/session" {
		t.Errorf("WatchPaths = %v", cfg.Flush.WatchPaths)
	}

	attrs, err := cfg.Attributes()
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs.Service != "com.example.vault" || !attrs.Synchronizable {
		t.Errorf("attrs = %+v", attrs)
	}
	if attrs.Accessibility != keychain.AccessibleAfterFirstUnlock {
		t.Errorf("Accessibility = %v", attrs.Accessibility)
	}

	interval, err := cfg.FlushInterval(30 * time.Second)
	if err != nil || interval != time.Minute {
		t.Errorf("FlushInterval = %v, %v", interval, err)
	}
	gap, err := cfg.FlushMinGap(5 * time.Second)
	if err != nil || gap != 10*time.Second {
		t.Errorf("FlushMinGap = %v, %v", gap, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Service != "" {
		t.Errorf("Service = %q, want empty", cfg.Service)
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attrs, err := cfg.Attributes()
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs.Service != keychain.DefaultService {
		t.Errorf("Service = %q, want %q", attrs.Service, keychain.DefaultService)
	}
	if attrs.Accessibility != keychain.AccessibleWhenUnlockedThisDeviceOnly {
		t.Errorf("Accessibility = %v", attrs.Accessibility)
	}

	interval, err := cfg.FlushInterval(30 * time.Second)
	if err != nil || interval != 30*time.Second {
		t.Errorf("FlushInterval = %v, %v", interval, err)
	}
}

func TestInvalidAccessibility(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "accessibility: always\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cfg.Attributes(); err == nil {
		t.Error("expected error for unknown accessibility")
	}
}

func TestInvalidDuration(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "flush:\n  interval: soon\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cfg.FlushInterval(time.Second); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestParseAccessibility(t *testing.T) {
	t.Parallel()
	cases := map[string]keychain.Accessibility{
		"when-unlocked":                  keychain.AccessibleWhenUnlocked,
		"when-unlocked-this-device":      keychain.AccessibleWhenUnlockedThisDeviceOnly,
		"after-first-unlock":             keychain.AccessibleAfterFirstUnlock,
		"after-first-unlock-this-device": keychain.AccessibleAfterFirstUnlockThisDeviceOnly,
	}
	for s, want := range cases {
		got, err := ParseAccessibility(s)
		if err != nil {
			t.Errorf("%s: %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %v, want %v", s, got, want)
		}
	}
}
