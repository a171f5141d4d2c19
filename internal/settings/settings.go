// Package settings persists the panel's user-editable values behind a small
// key-value capability so callers never depend on a concrete backend.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fl-status-panel/internal/config"
)

// ServerPortKey is the key under which the target port is stored.
const ServerPortKey = "serverPort"

// ErrUnavailable reports that the backing store could not be read or written.
var ErrUnavailable = errors.New("settings store unavailable")

// Store reads and writes single string values by key.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Backend() string
	Close() error
}

// AccessError wraps a backend failure for one key operation.
type AccessError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("settings %s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnavailable) match any access failure.
func (e *AccessError) Is(target error) bool { return target == ErrUnavailable }

func accessError(backend, op, key string, err error) error {
	return &AccessError{Backend: backend, Op: op, Key: key, Err: err}
}

// Open builds the store selected by cfg.SettingsBackend.
func Open(cfg config.Config) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.SettingsBackend)) {
	case "", "sqlite":
		return NewSQLiteStore(cfg.SettingsSQLitePath, cfg.SettingsQueryTimeout)
	case "mysql":
		return NewMySQLStore(cfg)
	case "postgres", "postgresql":
		return NewPostgresStore(cfg.SettingsPostgresDSN, cfg.SettingsConnTimeout, cfg.SettingsQueryTimeout)
	case "yaml":
		store, err := NewYAMLStore(cfg.SettingsYAMLPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}
