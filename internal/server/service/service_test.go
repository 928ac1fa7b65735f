package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"amendtrail/internal/server/config"
	"amendtrail/internal/server/notify"
	"amendtrail/internal/server/storage"
	"amendtrail/internal/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage = storage.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "amendtrail_test.db"),
	}
	require.NoError(t, cfg.Storage.Validate())

	logger := zaptest.NewLogger(t)
	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)

	svc, err := NewService(cfg, store, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, svc.Stop())
	})
	return svc
}

func amendment(id, entityID string, amendedAt time.Time, changes types.ChangeSet) *types.AmendmentRecord {
	return &types.AmendmentRecord{
		ID:          id,
		EntityID:    entityID,
		EntityType:  types.EntityRawMaterial,
		EntityLabel: "Nux Vomica 30C",
		Changes:     changes,
		AmendedBy:   "assistant.rao",
		AmendedAt:   amendedAt,
	}
}

// TestRecordAndFetchAmendment tests the record and lookup round trip
func TestRecordAndFetchAmendment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record := amendment("", "mat-1", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), types.ChangeSet{
		{Field: "quantity", Descriptor: "10 → 15"},
	})
	require.NoError(t, svc.RecordAmendment(ctx, record))
	assert.NotEmpty(t, record.ID)

	got, err := svc.GetAmendment(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "mat-1", got.EntityID)
}

// TestRecordAmendmentValidation tests rejection of incomplete records
func TestRecordAmendmentValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record := amendment("", "", time.Now(), types.ChangeSet{
		{Field: "quantity", Descriptor: "10 → 15"},
	})
	assert.Error(t, svc.RecordAmendment(ctx, record))

	record = amendment("", "mat-1", time.Now(), nil)
	assert.Error(t, svc.RecordAmendment(ctx, record))
}

// TestEntityDisplayList tests the end-to-end display pipeline
func TestEntityDisplayList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	older := amendment("", "mat-1", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), types.ChangeSet{
		{Field: "expiryDate", Descriptor: "2024-08-10 → 2025-08-10"},
		{Field: "updatedAt", Descriptor: "2024-01-09 → 2024-01-10"},
	})
	newer := amendment("", "mat-1", time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), types.ChangeSet{
		{Field: "quantity", Descriptor: "10 → 15"},
	})
	cosmetic := amendment("", "mat-1", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), types.ChangeSet{
		{Field: "updatedAt", Descriptor: "2024-03-09 → 2024-03-10"},
	})

	require.NoError(t, svc.RecordAmendment(ctx, older))
	require.NoError(t, svc.RecordAmendment(ctx, newer))
	require.NoError(t, svc.RecordAmendment(ctx, cosmetic))

	entries, err := svc.GetEntityDisplayList(ctx, "mat-1", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recent surviving record first; cosmetic-only record dropped
	assert.Equal(t, newer.ID, entries[0].Record.ID)
	assert.Equal(t, older.ID, entries[1].Record.ID)

	require.Len(t, entries[1].Changes, 1)
	assert.Equal(t, "expiryDate", entries[1].Changes[0].FieldName)
	assert.Equal(t, "10 Aug 2024", entries[1].Changes[0].DisplayFrom)
	assert.Equal(t, "10 Aug 2025", entries[1].Changes[0].DisplayTo)
}

// TestSearchDisabled tests search without a configured index
func TestSearchDisabled(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SearchAmendments(context.Background(), "nux", 10)
	assert.ErrorIs(t, err, types.ErrSearchDisabled)
}

// TestHealthCheck tests the health report
func TestHealthCheck(t *testing.T) {
	svc := newTestService(t)

	status := svc.HealthCheck(context.Background())
	require.NotNil(t, status)
	assert.True(t, status.Healthy)
	require.NotEmpty(t, status.Details)
	assert.Equal(t, "storage", status.Details[0].Component)
}

// TestHealthCheckNotify tests that enabled notifications report their health
func TestHealthCheckNotify(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage = storage.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "amendtrail_test.db"),
	}
	require.NoError(t, cfg.Storage.Validate())
	cfg.Notify.Enabled = true
	cfg.Notify.Webhook = notify.WebhookConfig{
		Enabled: true,
		URL:     "https://webhook.example.com/notify",
		Secret:  "test-secret",
	}

	logger := zaptest.NewLogger(t)
	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)

	svc, err := NewService(cfg, store, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, svc.Stop())
	})

	status := svc.HealthCheck(context.Background())
	require.NotNil(t, status)

	var found bool
	for _, d := range status.Details {
		if d.Component == "notify" {
			found = true
			assert.Equal(t, "healthy", d.Status)
		}
	}
	assert.True(t, found)
}
