// Package registry tracks which conversation threads are under active
// supervision, i.e. threads the bot keeps responding in without requiring a
// fresh mention each time.
package registry

import (
	"context"
	"time"
)

// keyPrefix namespaces thread keys in the shared store.
const keyPrefix = "active_thread:"

// Registry is the capability the router needs to decide whether a thread is
// supervised. Implementations must be safe for concurrent use.
//
// IsActive fails open to false: a backend error degrades to "not
// supervised" so a lookup failure can never crash an event cycle.
// Activate and Deactivate are idempotent; the TTL is fixed at activation
// time and is not refreshed by later activity.
type Registry interface {
	IsActive(ctx context.Context, threadTS string) bool
	Activate(ctx context.Context, threadTS string, ttl time.Duration) error
	Deactivate(ctx context.Context, threadTS string) error
}

// Key returns the store key for a thread timestamp.
func Key(threadTS string) string {
	return keyPrefix + threadTS
}
