package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeKV is an in-memory KV with an injectable clock so TTL expiry can be
// tested without sleeping.
type fakeKV struct {
	now     func() time.Time
	entries map[string]time.Time // key -> expiry instant
	failing bool
}

func newFakeKV() *fakeKV {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	kv := &fakeKV{entries: make(map[string]time.Time)}
	kv.now = func() time.Time { return base }
	return kv
}

func (f *fakeKV) advance(d time.Duration) {
	t := f.now().Add(d)
	f.now = func() time.Time { return t }
}

func (f *fakeKV) Exists(ctx context.Context, key string) (bool, error) {
	if f.failing {
		return false, errors.New("connection refused")
	}
	exp, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	if !f.now().Before(exp) {
		delete(f.entries, key)
		return false, nil
	}
	return true, nil
}

func (f *fakeKV) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failing {
		return errors.New("connection refused")
	}
	f.entries[key] = f.now().Add(ttl)
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	if f.failing {
		return errors.New("connection refused")
	}
	delete(f.entries, key)
	return nil
}

func TestKey(t *testing.T) {
	if got := Key("1700000000.000100"); got != "active_thread:1700000000.000100" {
		t.Errorf("Key = %q", got)
	}
}

func TestLocal_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	if l.IsActive(ctx, "t1") {
		t.Fatal("fresh registry should have no active threads")
	}
	if err := l.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !l.IsActive(ctx, "t1") {
		t.Fatal("t1 should be active after activate")
	}

	// Idempotent re-activation.
	if err := l.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	if !l.IsActive(ctx, "t1") {
		t.Fatal("t1 should stay active after re-activate")
	}

	if err := l.Deactivate(ctx, "t1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if l.IsActive(ctx, "t1") {
		t.Fatal("t1 should be inactive after deactivate")
	}

	// Deactivating an absent thread is a no-op.
	if err := l.Deactivate(ctx, "t1"); err != nil {
		t.Fatalf("deactivate absent: %v", err)
	}
}

func TestNewStore_NilKV(t *testing.T) {
	if _, err := NewStore(nil); err == nil {
		t.Fatal("expected error for nil kv")
	}
}

func TestStore_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s, err := NewStore(kv)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if s.IsActive(ctx, "t1") {
		t.Fatal("fresh store should have no active threads")
	}
	if err := s.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !s.IsActive(ctx, "t1") {
		t.Fatal("t1 should be active")
	}
	if err := s.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("idempotent activate: %v", err)
	}
	if err := s.Deactivate(ctx, "t1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if s.IsActive(ctx, "t1") {
		t.Fatal("t1 should be inactive after deactivate")
	}
	if err := s.Deactivate(ctx, "t1"); err != nil {
		t.Fatalf("deactivate absent: %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s, _ := NewStore(kv)

	if err := s.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}

	kv.advance(59 * time.Minute)
	if !s.IsActive(ctx, "t1") {
		t.Fatal("t1 should still be active before the TTL elapses")
	}

	kv.advance(2 * time.Minute)
	if s.IsActive(ctx, "t1") {
		t.Fatal("t1 should have expired")
	}
}

func TestStore_IsActiveFailsOpen(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s, _ := NewStore(kv)

	if err := s.Activate(ctx, "t1", time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}

	kv.failing = true
	if s.IsActive(ctx, "t1") {
		t.Fatal("lookup failure must degrade to inactive, not error or stale truth")
	}
	if err := s.Activate(ctx, "t2", time.Hour); err == nil {
		t.Fatal("activate should surface backend errors")
	}
	if err := s.Deactivate(ctx, "t1"); err == nil {
		t.Fatal("deactivate should surface backend errors")
	}
}
