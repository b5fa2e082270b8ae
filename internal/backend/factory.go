package backend

import (
	"context"
	"fmt"

	"cassa/internal/amqp"
	"cassa/internal/log"
	"cassa/internal/storage"
	"cassa/internal/storage/file"
	"cassa/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		f.logger.Warn("Using memory backend, the ledger will not survive a restart")
		return &BackendResult{Backend: memory.New()}, nil

	case FileBackend:
		store, err := file.New(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)
		return &BackendResult{Backend: store}, nil

	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Backend: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateNotifier implements Factory.CreateNotifier. Notifications are
// optional: a broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateNotifier(_ context.Context, config Config) *NotifierResult {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP disabled, archived months will not be announced")
		return &NotifierResult{}
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		return &NotifierResult{}
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return &NotifierResult{Notifier: client, Cleanup: client.Close}
}
