package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amendtrail/internal/types"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage for PostgreSQL via the pgx stdlib driver
type PostgresStorage struct {
	*BaseStorage
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(dsn string, opts Options, logger *zap.Logger) (*PostgresStorage, error) {
	base, err := NewBaseStorage("pgx", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	s := &PostgresStorage{BaseStorage: base}

	if err := s.initSchema(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema creates PostgreSQL tables
func (s *PostgresStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS amendments (
			id VARCHAR(64) PRIMARY KEY,
			entity_id VARCHAR(64) NOT NULL,
			entity_type VARCHAR(32) NOT NULL,
			entity_label VARCHAR(255) NOT NULL,
			amended_by VARCHAR(128) NOT NULL,
			amended_at TIMESTAMP NOT NULL,
			changes JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_amendments_entity_time
		ON amendments(entity_id, amended_at)`,
		`CREATE INDEX IF NOT EXISTS idx_amendments_time
		ON amendments(amended_at)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return tx.Commit()
}

// SaveAmendment persists a new amendment record
func (s *PostgresStorage) SaveAmendment(ctx context.Context, record *types.AmendmentRecord) error {
	changes, err := json.Marshal(record.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	query := `
        INSERT INTO amendments (id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.ExecContext(ctx, query,
		record.ID,
		record.EntityID,
		record.EntityType,
		record.EntityLabel,
		record.AmendedBy,
		record.AmendedAt,
		changes,
		record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save amendment: %w", err)
	}

	return nil
}

// GetAmendment retrieves one amendment by ID
func (s *PostgresStorage) GetAmendment(ctx context.Context, id string) (*types.AmendmentRecord, error) {
	query := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)

	record, err := scanAmendmentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrAmendmentNotFound
	}
	return record, err
}

// GetAmendments retrieves amendments matching the query
func (s *PostgresStorage) GetAmendments(ctx context.Context, query *AmendmentQuery, opts QueryOptions) ([]*types.AmendmentRecord, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	queryCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	qb := &QueryBuilder{}
	qb.Reset()
	qb.Dollar(2)

	baseQuery := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments
        WHERE amended_at BETWEEN $1 AND $2`

	qb.args = append(qb.args, query.StartTime, query.EndTime)

	if len(query.EntityIDs) > 0 {
		qb.Where("entity_id = ANY(?)", pq.Array(query.EntityIDs))
	}

	if query.EntityType != "" {
		qb.Where("entity_type = ?", string(query.EntityType))
	}

	qb.OrderBy("amended_at", "DESC")

	if query.Limit > 0 {
		qb.Limit(query.Limit)
	}

	rows, err := s.QueryContext(queryCtx, baseQuery+qb.String(), qb.Args()...)
	if err != nil {
		return nil, fmt.Errorf("query amendments: %w", err)
	}
	defer rows.Close()

	return collectAmendments(queryCtx, rows)
}

// GetEntityAmendments retrieves the amendment log for one entity
func (s *PostgresStorage) GetEntityAmendments(ctx context.Context, entityID string, limit int) ([]*types.AmendmentRecord, error) {
	query := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments
        WHERE entity_id = $1
        ORDER BY amended_at DESC`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query entity amendments: %w", err)
	}
	defer rows.Close()

	// An entity with no amendments yields an empty log, not an error
	return collectAmendments(ctx, rows)
}

// Cleanup deletes amendments older than the cutoff
func (s *PostgresStorage) Cleanup(ctx context.Context, before time.Time) error {
	query := "DELETE FROM amendments WHERE amended_at < $1"
	result, err := s.ExecContext(ctx, query, before)
	if err != nil {
		return fmt.Errorf("failed to cleanup amendments: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Cleanup completed",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return nil
}
