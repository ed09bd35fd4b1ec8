package backend

import (
	"context"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/services"
	"saldo/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the store with the services built on it.
type BackendResult struct {
	Store       storage.Store
	Templates   *services.TemplateService
	Projections *services.ProjectionService
	// AMQP is nil when no broker is configured.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific: optional JSON export to seed from
	DataFile string

	// AMQP (optional for both backends)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Projection services
	ProjectionMonths  int
	ProjectionWorkers int
	CacheSize         int
	CacheTTL          time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
