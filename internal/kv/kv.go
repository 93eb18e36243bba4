// Package kv defines the string key-value backend the registry store runs
// against, with redis and in-memory implementations.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is the backend contract: string keys, string values, no
// transactions, no compare-and-swap. All implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// MGet returns the values for keys in order. Missing keys yield an
	// empty string in their slot rather than an error.
	MGet(ctx context.Context, keys ...string) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
