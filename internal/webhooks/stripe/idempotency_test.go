package stripewebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryEventStore struct {
	mu     sync.Mutex
	keys   map[string]time.Duration
	setErr error
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{keys: map[string]time.Duration{}}
}

func (m *memoryEventStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryEventStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryEventStore) WebhookEventKey(provider, eventID string) string {
	return "of:webhook:" + provider + ":" + eventID
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := newMemoryEventStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	if ttl := store.keys["of:webhook:stripe:evt_1"]; ttl != time.Hour {
		t.Fatalf("expected key with 1h ttl, got %v", ttl)
	}

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("duplicate delivery: seen=%v err=%v", seen, err)
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("redelivery after delete: seen=%v err=%v", seen, err)
	}
}

func TestIdempotencyGuardErrors(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "stripe"); err == nil {
		t.Fatal("expected nil store to fail")
	}
	if _, err := NewIdempotencyGuard(newMemoryEventStore(), -time.Second, "stripe"); err == nil {
		t.Fatal("expected negative ttl to fail")
	}
	if _, err := NewIdempotencyGuard(newMemoryEventStore(), time.Hour, ""); err == nil {
		t.Fatal("expected empty provider to fail")
	}

	store := newMemoryEventStore()
	store.setErr = errors.New("redis down")
	guard, _ := NewIdempotencyGuard(store, time.Hour, "stripe")
	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err == nil {
		t.Fatal("expected store error to surface")
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected empty event id to fail")
	}
}
