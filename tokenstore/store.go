// Package tokenstore holds short-lived opaque values with a per-key expiry.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is missing or expired.
var ErrNotFound = errors.New("tokenstore: key not found")

// Store is a key-value store with per-key TTL.
//
// GetDel reads and deletes a key in one operation: among concurrent callers
// for the same key, exactly one receives the value.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetDel(ctx context.Context, key string) ([]byte, error)
	Close() error
}
