package repository

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBadgerKV(t *testing.T) *BadgerKV {
	t.Helper()
	kv, err := NewBadgerKV(BadgerConfig{}, nil)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func newTestSQLiteKV(t *testing.T, clock *fakeClock) *SQLiteKV {
	t.Helper()
	var opts []SQLiteOption
	if clock != nil {
		opts = append(opts, WithSQLiteClock(clock.Now))
	}
	kv, err := NewSQLiteKV(":memory:", 0, nil, opts...)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

// backends returns every KV implementation for table-driven tests.
func backends(t *testing.T) map[string]KV {
	return map[string]KV{
		"badger": newTestBadgerKV(t),
		"sqlite": newTestSQLiteKV(t, nil),
	}
}
