package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/projection"
	"saldo/internal/services"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: without it the store still works, other processes
	// just are not told about changes.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change messages", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	size, ttl := config.CacheSize, config.CacheTTL
	if size < 1 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	lru := cache.NewLRUCache[projection.Projection](size, ttl)
	manager := cache.NewManager()
	manager.Register(lru)
	manager.StartCleanup(ttl)

	result := &BackendResult{
		Store:       store,
		Templates:   services.NewTemplateService(store, publisher),
		Projections: services.NewProjectionService(store, cache.NewLoader[projection.Projection](lru), config.ProjectionMonths).WithWorkers(config.ProjectionWorkers),
		AMQP:        amqpClient,
	}
	result.Cleanup = func() error {
		manager.Stop()
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", amqpClient != nil,
		"cache_size", size,
		"cache_ttl", ttl)
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		if config.DataFile == "" {
			f.logger.Info("Initialized memory store")
			return memory.New(), nil
		}
		store, err := memory.NewFromFile(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load data file: %w", err)
		}
		f.logger.Info("Initialized memory store", "data_file", config.DataFile)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
