package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist or has expired.
	ErrKeyNotFound = errors.New("kvstore: key not found")

	// ErrUnavailable wraps any backend failure.
	ErrUnavailable = errors.New("kvstore: store unavailable")
)

// Store is the contract shared by every backend.
type Store interface {
	// IncrWithTTL increments key and returns the new count and the remaining TTL.
	// The TTL is set only when the key is created, so the window is fixed.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
	// Get returns the value of key or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// SetEx stores value under key, replacing any previous value and TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes keys. Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error
	// TTL returns the remaining lifetime of key, or 0 when it is missing.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// DelIfEqual deletes key only when its value equals value.
	// It reports whether the key was deleted.
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
}
