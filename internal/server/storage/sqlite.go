package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStorage implements Storage for SQLite
type SQLiteStorage struct {
	*BaseStorage
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dsn string, opts Options, logger *zap.Logger) (*SQLiteStorage, error) {
	if err := ensureDBDir(dsn); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	base, err := NewBaseStorage("sqlite3", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{BaseStorage: base}

	if err := s.init(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	return s, nil
}

// init applies SQLite pragmas and creates the schema
func (s *SQLiteStorage) init() error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"foreign_keys", "ON"},
		{"busy_timeout", "5000"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := s.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma.name, err)
		}
	}

	return s.initSchema()
}

// initSchema creates SQLite tables
func (s *SQLiteStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS amendments (
			id TEXT PRIMARY KEY,
			entity_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_label TEXT NOT NULL,
			amended_by TEXT NOT NULL,
			amended_at TIMESTAMP NOT NULL,
			changes TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_amendments_entity_time
		ON amendments(entity_id, amended_at)`,
		`CREATE INDEX IF NOT EXISTS idx_amendments_time
		ON amendments(amended_at)`,
	}

	for _, q := range queries {
		if _, err := s.ExecContext(context.Background(), q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// ensureDBDir creates the directory containing the database file
func ensureDBDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}
