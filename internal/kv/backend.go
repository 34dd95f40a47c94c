// Package kv provides the durable key/value backends that hold local
// application state. Backends store opaque strings; callers own encoding.
package kv

import (
	"context"
	"errors"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Backend is a durable key/value store with key enumeration.
// GetItem reports ok=false with a nil error when the key is absent.
// RemoveItem on an absent key is not an error. Keys returns every existing key, sorted.
type Backend interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
