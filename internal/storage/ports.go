// Package storage persists the ledger's collections as opaque snapshots
// addressed by a string key.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing was ever saved under a key.
var ErrNotFound = errors.New("snapshot not found")

// Snapshotter reads and writes whole serialized collections.
type Snapshotter interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// BatchSaver is implemented by backends able to write several snapshots
// in a single atomic step.
type BatchSaver interface {
	SaveAll(ctx context.Context, snapshots map[string][]byte) error
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}
