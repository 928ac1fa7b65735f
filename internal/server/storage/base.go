package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"amendtrail/internal/types"

	"go.uber.org/zap"
)

// Options defines storage options
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
	EnablePruning   bool
	Retention       time.Duration
	PruneInterval   time.Duration
	SlowQueryTime   time.Duration
}

// Metrics tracks query counters
type Metrics struct {
	QueryCount     int64
	QueryErrors    int64
	SlowQueryCount int64
	LastError      error
	LastErrorTime  time.Time
}

// BaseStorage is the base implementation of the Storage interface
type BaseStorage struct {
	db        *sql.DB
	opts      Options
	logger    *zap.Logger
	metrics   *Metrics
	pruneStop chan struct{}
}

// NewBaseStorage creates new BaseStorage
func NewBaseStorage(driver, dsn string, opts Options, logger *zap.Logger) (*BaseStorage, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &BaseStorage{
		db:      db,
		opts:    opts,
		logger:  logger,
		metrics: &Metrics{},
	}, nil
}

// database exposes the underlying connection for migrations
func (s *BaseStorage) database() *sql.DB {
	return s.db
}

// SaveAmendment persists a new amendment record
func (s *BaseStorage) SaveAmendment(ctx context.Context, record *types.AmendmentRecord) error {
	changes, err := json.Marshal(record.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	query := `
        INSERT INTO amendments (id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

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
func (s *BaseStorage) GetAmendment(ctx context.Context, id string) (*types.AmendmentRecord, error) {
	query := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	record, err := scanAmendmentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrAmendmentNotFound
	}
	return record, err
}

// GetAmendments retrieves amendments matching the query
func (s *BaseStorage) GetAmendments(ctx context.Context, query *AmendmentQuery, opts QueryOptions) ([]*types.AmendmentRecord, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	queryCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	qb := &QueryBuilder{}
	qb.Reset()

	baseQuery := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments
        WHERE amended_at BETWEEN ? AND ?`

	qb.args = append(qb.args, query.StartTime, query.EndTime)

	if len(query.EntityIDs) > 0 {
		qb.Where(fmt.Sprintf("entity_id IN (%s)", placeholders(len(query.EntityIDs))),
			stringArgs(query.EntityIDs)...)
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
func (s *BaseStorage) GetEntityAmendments(ctx context.Context, entityID string, limit int) ([]*types.AmendmentRecord, error) {
	query := `
        SELECT id, entity_id, entity_type, entity_label, amended_by, amended_at, changes, created_at
        FROM amendments
        WHERE entity_id = ?
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
func (s *BaseStorage) Cleanup(ctx context.Context, before time.Time) error {
	query := "DELETE FROM amendments WHERE amended_at < ?"
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

// TxFn represents a transaction function
type TxFn func(*sql.Tx) error

// WithTransaction executes operations in a transaction
func (s *BaseStorage) WithTransaction(ctx context.Context, fn TxFn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed during panic",
					zap.Error(rbErr),
					zap.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed",
				zap.Error(rbErr),
				zap.Error(err))
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// ExecContext executes a query
func (s *BaseStorage) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.db.ExecContext(ctx, query, args...)
	s.trackQuery(query, err, time.Since(start))
	return result, err
}

// QueryContext executes a query
func (s *BaseStorage) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.trackQuery(query, err, time.Since(start))
	return rows, err
}

// trackQuery updates query metrics and logs slow queries
func (s *BaseStorage) trackQuery(query string, err error, duration time.Duration) {
	atomic.AddInt64(&s.metrics.QueryCount, 1)
	if err != nil {
		atomic.AddInt64(&s.metrics.QueryErrors, 1)
		s.metrics.LastError = err
		s.metrics.LastErrorTime = time.Now()
	}

	if duration > s.opts.SlowQueryTime {
		atomic.AddInt64(&s.metrics.SlowQueryCount, 1)
		s.logger.Warn("slow query detected",
			zap.String("query", query),
			zap.Duration("duration", duration))
	}
}

// StartPruning starts the background pruning routine
func (s *BaseStorage) StartPruning(ctx context.Context) {
	if !s.opts.EnablePruning {
		return
	}

	s.pruneStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.opts.PruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.pruneStop:
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-s.opts.Retention)
				if err := s.Cleanup(ctx, cutoff); err != nil {
					s.logger.Error("Failed to prune old amendments", zap.Error(err))
				}
			}
		}
	}()
}

// StopPruning stops the pruning routine
func (s *BaseStorage) StopPruning() {
	if s.pruneStop != nil {
		close(s.pruneStop)
		s.pruneStop = nil
	}
}

// Close closes the database
func (s *BaseStorage) Close() error {
	s.StopPruning()
	return s.db.Close()
}

// Ping pings the database
func (s *BaseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns database statistics
func (s *BaseStorage) Stats() Stats {
	dbStats := s.db.Stats()
	return Stats{
		OpenConnections:   dbStats.OpenConnections,
		InUse:             dbStats.InUse,
		Idle:              dbStats.Idle,
		WaitCount:         dbStats.WaitCount,
		WaitDuration:      dbStats.WaitDuration,
		MaxIdleClosed:     dbStats.MaxIdleClosed,
		MaxLifetimeClosed: dbStats.MaxLifetimeClosed,
		QueryCount:        atomic.LoadInt64(&s.metrics.QueryCount),
		QueryErrors:       atomic.LoadInt64(&s.metrics.QueryErrors),
		SlowQueries:       atomic.LoadInt64(&s.metrics.SlowQueryCount),
	}
}

// rowScanner abstracts sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAmendmentRow scans one row into an AmendmentRecord
func scanAmendmentRow(row rowScanner) (*types.AmendmentRecord, error) {
	record := &types.AmendmentRecord{}
	var changes []byte

	err := row.Scan(
		&record.ID,
		&record.EntityID,
		&record.EntityType,
		&record.EntityLabel,
		&record.AmendedBy,
		&record.AmendedAt,
		&changes,
		&record.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(changes, &record.Changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return record, nil
}

// collectAmendments scans all rows into records. The result is never nil
// so list responses encode as an empty array rather than null.
func collectAmendments(ctx context.Context, rows *sql.Rows) ([]*types.AmendmentRecord, error) {
	records := make([]*types.AmendmentRecord, 0)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := scanAmendmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return records, nil
}

// placeholders returns n comma separated ? placeholders
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// stringArgs converts string slices to query arguments
func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
