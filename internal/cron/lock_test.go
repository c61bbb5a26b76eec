package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryLockStore struct {
	values  map[string]string
	ttls    map[string]time.Duration
	setErr  error
	deletes int
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, held := m.values[key]; held {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) DelIfValue(_ context.Context, key string, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	m.deletes++
	return true, nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "of:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if store.ttls["of:lock:cron"] != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", store.ttls["of:lock:cron"])
	}

	other, _ := NewRedisLock(store, "of:lock:cron", time.Minute)
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("second instance must not acquire a held lock")
	}
	if err := other.Release(ctx); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, held := store.values["of:lock:cron"]; !held {
		t.Fatal("non-owner release must not free the lock")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.deletes != 1 {
		t.Fatalf("expected one delete, got %d", store.deletes)
	}
	if ok, _ := other.Acquire(ctx); !ok {
		t.Fatal("lock should be free after owner release")
	}
}

func TestRedisLockReleaseLeavesTakenOverLock(t *testing.T) {
	store := newMemoryLockStore()
	lock, _ := NewRedisLock(store, "of:lock:cron", time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	// ttl expired and another worker took over
	store.values["of:lock:cron"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["of:lock:cron"] != "someone-else" {
		t.Fatal("release removed a lock owned by another instance")
	}
}

func TestRedisLockErrorsAndDefaults(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected nil store to fail")
	}
	if _, err := NewRedisLock(newMemoryLockStore(), "", time.Minute); err == nil {
		t.Fatal("expected empty key to fail")
	}
	lock, err := NewRedisLock(newMemoryLockStore(), "key", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if lock.TTL() != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v", lock.TTL())
	}

	store := newMemoryLockStore()
	store.setErr = errors.New("redis down")
	failing, _ := NewRedisLock(store, "key", time.Minute)
	if _, err := failing.Acquire(context.Background()); err == nil {
		t.Fatal("expected setnx error")
	}
}
