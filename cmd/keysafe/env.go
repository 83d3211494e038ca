package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keysafehq/keysafe/internal/audit"
	"github.com/keysafehq/keysafe/internal/config"
	"github.com/keysafehq/keysafe/internal/keychain"
)

// env is the shared command environment: loaded config, a Manager over the
// platform secure store, and the audit log wired to its failure callback.
type env struct {
	cfg   *config.Config
	store *keychain.SystemStore
	mgr   *keychain.Manager
	audit *audit.Logger
}

func newEnv() (*env, func(), error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	attrs, err := cfg.Attributes()
	if err != nil {
		return nil, nil, err
	}

	auditPath := cfg.AuditLogPath()
	if err := os.MkdirAll(filepath.Dir(auditPath), 0700); err != nil {
		return nil, nil, fmt.Errorf("creating keysafe dir: %w", err)
	}
	auditLog, err := audit.NewLogger(auditPath)
	if err != nil {
		return nil, nil, err
	}

	store := keychain.NewSystemStore()
	mgr := keychain.NewManager(store, attrs, keychain.WithReport(audit.Reporter(auditLog)))

	e := &env{cfg: cfg, store: store, mgr: mgr, audit: auditLog}
	return e, func() { auditLog.Close() }, nil
}
