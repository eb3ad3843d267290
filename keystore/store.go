package keystore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AgentAPIKey is the storage key under which the agent API key is kept.
const AgentAPIKey = "subnet_agent_api_key"

// MaxKeyLength is the maximum allowed length for a storage key.
const MaxKeyLength = 256

// Sentinel errors for store operations.
var (
	ErrInvalidKey    = errors.New("keystore: key is invalid")
	ErrKeyTooLong    = errors.New("keystore: key exceeds max length")
	ErrUnknownDriver = errors.New("keystore: unknown driver")
	ErrClosed        = errors.New("keystore: store is closed")
)

// Store is a string key-value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get returns ("", false, nil) when the key is absent.
// - Delete is idempotent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ValidateKey checks if a storage key is acceptable.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r\x00") {
		return ErrInvalidKey
	}
	return nil
}

// Open creates a store for driver ("memory", "file" or "sqlite").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
