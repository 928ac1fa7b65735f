package storage

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStorage implements Storage for MySQL
type MySQLStorage struct {
	*BaseStorage
}

// NewMySQLStorage creates a new MySQL storage instance
func NewMySQLStorage(dsn string, opts Options, logger *zap.Logger) (*MySQLStorage, error) {
	base, err := NewBaseStorage("mysql", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	s := &MySQLStorage{BaseStorage: base}

	if err := s.initSchema(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema creates MySQL tables
func (s *MySQLStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS amendments (
			id VARCHAR(64) PRIMARY KEY,
			entity_id VARCHAR(64) NOT NULL,
			entity_type VARCHAR(32) NOT NULL,
			entity_label VARCHAR(255) NOT NULL,
			amended_by VARCHAR(128) NOT NULL,
			amended_at TIMESTAMP NOT NULL,
			changes JSON NOT NULL,
			created_at TIMESTAMP NOT NULL,
			INDEX idx_amendments_entity_time (entity_id, amended_at),
			INDEX idx_amendments_time (amended_at)
		)`,
	}

	for _, q := range queries {
		if _, err := s.ExecContext(context.Background(), q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}
