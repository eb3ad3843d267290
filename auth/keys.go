package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// KeyInfo describes a registered agent API key.
type KeyInfo struct {
	// ID is a unique identifier for this key.
	ID string

	// Hash is the SHA-256 hex digest of the key.
	Hash string

	// Label is a human-readable name, e.g. the console user it was issued to.
	Label string

	// ExpiresAt is when this key expires (zero = never).
	ExpiresAt time.Time

	// Revoked marks a key that must no longer be accepted.
	Revoked bool
}

// Expired reports whether the key has an expiry before now.
func (k *KeyInfo) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && !now.Before(k.ExpiresAt)
}

// KeyStore provides storage for hashed API keys.
type KeyStore interface {
	// Lookup retrieves a key by its hash. Returns nil if not found.
	Lookup(ctx context.Context, hash string) (*KeyInfo, error)
}

// HashKey hashes an API key using SHA-256 for storage.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryKeyStore is an in-memory KeyStore.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*KeyInfo // keyed by hash
}

// NewMemoryKeyStore creates a new in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*KeyInfo)}
}

// Lookup retrieves a key by its hash. The returned value is a copy.
func (s *MemoryKeyStore) Lookup(_ context.Context, hash string) (*KeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.keys[hash]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// Register stores the hash of key under id and returns its info.
func (s *MemoryKeyStore) Register(id, key, label string, expiresAt time.Time) *KeyInfo {
	info := &KeyInfo{
		ID:        id,
		Hash:      HashKey(key),
		Label:     label,
		ExpiresAt: expiresAt,
	}
	s.mu.Lock()
	s.keys[info.Hash] = info
	s.mu.Unlock()
	return info
}

// Revoke marks the key with the given id as revoked. It reports whether a
// key was found.
func (s *MemoryKeyStore) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range s.keys {
		if info.ID == id {
			info.Revoked = true
			return true
		}
	}
	return false
}

// Len returns the number of registered keys.
func (s *MemoryKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ KeyStore = (*MemoryKeyStore)(nil)
