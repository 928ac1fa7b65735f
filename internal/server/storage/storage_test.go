package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"amendtrail/internal/types"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()

	cfg := &Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "amendtrail_test.db"),
	}
	require.NoError(t, cfg.Validate())

	store, err := NewStorage(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testAmendment(id, entityID string, amendedAt time.Time) *types.AmendmentRecord {
	return &types.AmendmentRecord{
		ID:          id,
		EntityID:    entityID,
		EntityType:  types.EntityRawMaterial,
		EntityLabel: "Nux Vomica 30C",
		Changes: types.ChangeSet{
			{Field: "quantity", Descriptor: "10 → 15"},
			{Field: "expiryDate", Descriptor: "2024-08-10 → 2025-08-10"},
		},
		AmendedBy: "assistant.rao",
		AmendedAt: amendedAt,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// TestStorageSaveAndGet tests the save and lookup round trip
func TestStorageSaveAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	record := testAmendment("amd-1", "mat-1", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveAmendment(ctx, record))

	got, err := store.GetAmendment(ctx, "amd-1")
	require.NoError(t, err)
	assert.Equal(t, record.EntityID, got.EntityID)
	assert.Equal(t, record.EntityLabel, got.EntityLabel)
	require.Len(t, got.Changes, 2)
	assert.Equal(t, "quantity", got.Changes[0].Field)
	assert.Equal(t, "expiryDate", got.Changes[1].Field)

	_, err = store.GetAmendment(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrAmendmentNotFound)
}

// TestStorageGetAmendments tests range queries with filters
func TestStorageGetAmendments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-1", "mat-1", base.AddDate(0, 0, 1))))
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-2", "mat-2", base.AddDate(0, 0, 2))))
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-3", "mat-1", base.AddDate(0, 0, 3))))

	records, err := store.GetAmendments(ctx, &AmendmentQuery{
		StartTime: base,
		EndTime:   base.AddDate(0, 1, 0),
	}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Most recent first
	assert.Equal(t, "amd-3", records[0].ID)
	assert.Equal(t, "amd-1", records[2].ID)

	// Entity filter
	records, err = store.GetAmendments(ctx, &AmendmentQuery{
		EntityIDs: []string{"mat-2"},
		StartTime: base,
		EndTime:   base.AddDate(0, 1, 0),
	}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "amd-2", records[0].ID)

	// Limit
	records, err = store.GetAmendments(ctx, &AmendmentQuery{
		StartTime: base,
		EndTime:   base.AddDate(0, 1, 0),
		Limit:     2,
	}, QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// TestStorageGetEntityAmendments tests the per-entity log
func TestStorageGetEntityAmendments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-1", "mat-1", base)))
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-2", "mat-1", base.AddDate(0, 0, 5))))

	records, err := store.GetEntityAmendments(ctx, "mat-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "amd-2", records[0].ID)

	// An entity with no amendments is an empty log, not an error
	records, err = store.GetEntityAmendments(ctx, "unknown", 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

// TestStorageCleanup tests retention cleanup
func TestStorageCleanup(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-old", "mat-1", old)))
	require.NoError(t, store.SaveAmendment(ctx, testAmendment("amd-new", "mat-1", recent)))

	require.NoError(t, store.Cleanup(ctx, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	records, err := store.GetEntityAmendments(ctx, "mat-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "amd-new", records[0].ID)
}
