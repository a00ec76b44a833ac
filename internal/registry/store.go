package registry

import (
	"context"
	"fmt"
	"log"
	"time"
)

// KV is the narrow key-value capability Store needs from a shared expiring
// store: existence check, set-with-expiry, delete. The store itself owns
// key expiry; Store never sweeps.
type KV interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store is a Registry backed by a shared expiring key-value store. Because
// the store, not any single process, owns the truth, supervision state
// survives process restarts and is visible to every worker behind the same
// event subscription.
type Store struct {
	kv KV
}

// NewStore creates a Store over the given key-value backend.
func NewStore(kv KV) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("registry: kv backend is required")
	}
	return &Store{kv: kv}, nil
}

// IsActive reports whether the thread key exists in the store. Lookup
// errors are logged and degrade to false.
func (s *Store) IsActive(ctx context.Context, threadTS string) bool {
	ok, err := s.kv.Exists(ctx, Key(threadTS))
	if err != nil {
		log.Printf("registry: exists %s: %v", Key(threadTS), err)
		return false
	}
	return ok
}

// Activate sets the thread key with the given TTL. Re-activating an
// already-active thread rewrites the key; last writer wins on TTL, which is
// acceptable because the TTL is fixed-at-creation, not sliding.
func (s *Store) Activate(ctx context.Context, threadTS string, ttl time.Duration) error {
	if err := s.kv.SetEx(ctx, Key(threadTS), "1", ttl); err != nil {
		return fmt.Errorf("registry: activate %s: %w", threadTS, err)
	}
	return nil
}

// Deactivate deletes the thread key. Deleting an absent key is not an error.
func (s *Store) Deactivate(ctx context.Context, threadTS string) error {
	if err := s.kv.Del(ctx, Key(threadTS)); err != nil {
		return fmt.Errorf("registry: deactivate %s: %w", threadTS, err)
	}
	return nil
}
