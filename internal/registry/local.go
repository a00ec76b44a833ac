package registry

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process Registry backed by a mutex-guarded set. It performs
// no TTL enforcement: entries live until deactivated or the process exits,
// and all state is lost on restart. Suitable only for single-instance
// deployments; multi-worker deployments must use Store so every worker sees
// the same supervision state.
type Local struct {
	mu      sync.Mutex
	threads map[string]struct{}
}

// NewLocal creates an empty Local registry.
func NewLocal() *Local {
	return &Local{threads: make(map[string]struct{})}
}

// IsActive reports whether the thread is supervised.
func (l *Local) IsActive(ctx context.Context, threadTS string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.threads[threadTS]
	return ok
}

// Activate marks the thread as supervised. The ttl is ignored; Local entries
// live for the process lifetime.
func (l *Local) Activate(ctx context.Context, threadTS string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threads[threadTS] = struct{}{}
	return nil
}

// Deactivate removes the thread. Removing an absent thread is a no-op.
func (l *Local) Deactivate(ctx context.Context, threadTS string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.threads, threadTS)
	return nil
}
