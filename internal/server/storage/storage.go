package storage

import (
	"context"
	"fmt"
	"time"

	"amendtrail/internal/types"

	"go.uber.org/zap"
)

// Storage defines the amendment persistence interface
type Storage interface {
	// SaveAmendment persists a new amendment record
	SaveAmendment(ctx context.Context, record *types.AmendmentRecord) error

	// GetAmendment retrieves one amendment by ID
	GetAmendment(ctx context.Context, id string) (*types.AmendmentRecord, error)

	// GetAmendments retrieves amendments matching the query
	GetAmendments(ctx context.Context, query *AmendmentQuery, opts QueryOptions) ([]*types.AmendmentRecord, error)

	// GetEntityAmendments retrieves the amendment log for one entity
	GetEntityAmendments(ctx context.Context, entityID string, limit int) ([]*types.AmendmentRecord, error)

	// Cleanup deletes amendments older than the cutoff
	Cleanup(ctx context.Context, before time.Time) error

	// Ping checks the database connection
	Ping(ctx context.Context) error

	// Stats returns database statistics
	Stats() Stats

	// Close closes the database
	Close() error
}

// Stats represents database statistics
type Stats struct {
	OpenConnections   int           `json:"open_connections"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
	QueryCount        int64         `json:"query_count"`
	QueryErrors       int64         `json:"query_errors"`
	SlowQueries       int64         `json:"slow_queries"`
}

// NewStorage creates new storage instance based on configuration
func NewStorage(cfg *Config, logger *zap.Logger) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	opts := Options{
		MaxOpenConns:    cfg.MaxConnections,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxLifetime,
		QueryTimeout:    cfg.QueryTimeout,
		EnablePruning:   cfg.EnablePruning,
		Retention:       cfg.AmendmentRetention,
		PruneInterval:   cfg.PruneInterval,
		SlowQueryTime:   cfg.SlowQueryTime,
	}

	var (
		store Storage
		err   error
	)

	switch cfg.Driver {
	case "sqlite":
		store, err = NewSQLiteStorage(cfg.DSN, opts, logger)
	case "mysql":
		store, err = NewMySQLStorage(cfg.DSN, opts, logger)
	case "postgres":
		store, err = NewPostgresStorage(cfg.DSN, opts, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Run file-based migrations when configured
	if cfg.AutoMigrate && cfg.MigrationsPath != "" {
		if err := runMigrations(store, cfg, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	// Start retention pruning when enabled; Close stops it
	if cfg.EnablePruning {
		if pruner, ok := store.(interface{ StartPruning(context.Context) }); ok {
			pruner.StartPruning(context.Background())
		}
	}

	return store, nil
}
