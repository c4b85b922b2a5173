// Package repository provides session persistence over embedded key-value backends.
package repository

import (
	"context"
	"time"
)

// KV is a key-value store with per-entry expiry.
// A ttl of zero means the entry never expires.
type KV interface {
	// Get returns the value for key. found is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put stores value under key, replacing any previous value and expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}
