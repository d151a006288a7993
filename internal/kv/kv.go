// Package kv defines the string-keyed document store the entity
// repositories persist into, plus its backends.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was removed.
var ErrNotFound = errors.New("kv: key not found")

// Store is a whole-document key-value store. Values are opaque bytes; every
// Set replaces the previous value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
