// Package config loads keysafe configuration from ~/.keysafe/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keysafehq/keysafe/internal/keychain"
)

// Config holds persistent configuration. Zero values fall back to defaults,
// so an empty file is a valid config.
type Config struct {
	// Service is the secure-store service attribute for all items.
	Service string `yaml:"service"`

	// Synchronizable marks items for cross-device sync where supported.
	Synchronizable bool `yaml:"synchronizable"`

	// Accessibility is one of "when-unlocked", "when-unlocked-this-device",
	// "after-first-unlock", "after-first-unlock-this-device".
	Accessibility string `yaml:"accessibility"`

	// AuditLog is the path of the append-only audit log.
	AuditLog string `yaml:"audit_log"`

	Flush FlushConfig `yaml:"flush"`
}

// FlushConfig tunes the backlog flush trigger. Durations are strings in
// time.ParseDuration syntax ("30s", "1m").
type FlushConfig struct {
	Interval   string   `yaml:"interval"`
	MinGap     string   `yaml:"min_gap"`
	WatchPaths []string `yaml:"watch_paths"`
}

// DefaultPath returns the default config file path: ~/.keysafe/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".keysafe", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Attributes resolves the configured item attributes, applying defaults.
func (c *Config) Attributes() (keychain.Attributes, error) {
	attrs := keychain.DefaultAttributes()
	if c.Service != "" {
		attrs.Service = c.Service
	}
	attrs.Synchronizable = c.Synchronizable
	if c.Accessibility != "" {
		a, err := ParseAccessibility(c.Accessibility)
		if err != nil {
			return attrs, err
		}
		attrs.Accessibility = a
	}
	return attrs, nil
}

// AuditLogPath returns the configured audit log path, defaulting to
// ~/.keysafe/audit.log.
func (c *Config) AuditLogPath() string {
	if c.AuditLog != "" {
		return c.AuditLog
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".keysafe", "audit.log")
}

// FlushInterval returns the periodic retry cadence, or fallback when unset.
func (c *Config) FlushInterval(fallback time.Duration) (time.Duration, error) {
	return parseDuration(c.Flush.Interval, fallback)
}

// FlushMinGap returns the minimum spacing between flushes, or fallback
// when unset.
func (c *Config) FlushMinGap(fallback time.Duration) (time.Duration, error) {
	return parseDuration(c.Flush.MinGap, fallback)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// ParseAccessibility maps a config string onto an accessibility level.
func ParseAccessibility(s string) (keychain.Accessibility, error) {
	switch s {
	case "when-unlocked":
		return keychain.AccessibleWhenUnlocked, nil
	case "when-unlocked-this-device":
		return keychain.AccessibleWhenUnlockedThisDeviceOnly, nil
	case "after-first-unlock":
		return keychain.AccessibleAfterFirstUnlock, nil
	case "after-first-unlock-this-device":
		return keychain.AccessibleAfterFirstUnlockThisDeviceOnly, nil
	default:
		return 0, fmt.Errorf("unknown accessibility %q", s)
	}
}
