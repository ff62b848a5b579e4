// Package store defines the Catalog Store boundary: a key-value backing with
// atomic multi-key commit, plus the keyspace layout and value codec for
// catalog objects. Derived state (dependency edges, id counters) is never
// persisted here; it is rebuilt from the stored objects on startup.
package store

import (
	"context"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
)

// Write is one key mutation in a commit. A nil Value with Delete set is a
// tombstone for the key.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put builds a write that upserts a key.
func Put(key string, value []byte) Write {
	return Write{Key: key, Value: value}
}

// Del builds a tombstone write for a key.
func Del(key string) Write {
	return Write{Key: key, Delete: true}
}

// Store is the durable backing for catalog objects. Commit applies all
// writes atomically: either every write is visible afterwards or none is.
// LoadAll returns the full keyspace for startup recovery.
type Store interface {
	Commit(ctx context.Context, writes []Write) apperrors.Error
	LoadAll(ctx context.Context) (map[string][]byte, apperrors.Error)
	Close() error
}
