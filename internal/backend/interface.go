package backend

import (
	"context"

	"cassa/internal/ledger"
	"cassa/internal/storage"
)

// Backend is the durable home of the ledger snapshots. Every backend writes
// a batch of snapshots in one step, so a month rollover is stored whole or
// not at all.
type Backend interface {
	storage.Snapshotter
	storage.BatchSaver
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// NotifierResult holds the month-archived notifier, nil when disabled.
type NotifierResult struct {
	Notifier ledger.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a snapshot backend based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateNotifier connects to the broker when one is configured
	CreateNotifier(ctx context.Context, config Config) *NotifierResult
}

// Ping checks a backend's health when it supports it.
func Ping(ctx context.Context, b Backend) error {
	if p, ok := b.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
