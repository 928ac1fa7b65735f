package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"amendtrail/internal/retry"
	"amendtrail/internal/types"
)

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": status,
		"data": data,
	})
}

// TestRecordAmendment tests the ingest call
func TestRecordAmendment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/amendments", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var record types.AmendmentRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&record))
		assert.Equal(t, "mat-1", record.EntityID)

		respond(w, http.StatusCreated, map[string]string{"id": "amd-1"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "secret"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := c.RecordAmendment(context.Background(), &types.AmendmentRecord{
		EntityID:    "mat-1",
		EntityType:  types.EntityRawMaterial,
		EntityLabel: "Nux Vomica 30C",
		Changes:     types.ChangeSet{{Field: "quantity", Descriptor: "10 → 15"}},
		AmendedBy:   "assistant.rao",
		AmendedAt:   time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "amd-1", id)
}

// TestGetEntityDisplayList tests display list retrieval
func TestGetEntityDisplayList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/entities/mat-1/amendments/display", r.URL.Path)
		require.Equal(t, "en-US", r.URL.Query().Get("locale"))

		respond(w, http.StatusOK, []types.DisplayEntry{{
			Changes: []types.PresentedChange{
				{FieldName: "quantity", DisplayFrom: "10", DisplayTo: "15"},
			},
		}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	entries, err := c.GetEntityDisplayList(context.Background(), "mat-1", "en-US")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quantity", entries[0].Changes[0].FieldName)
}

// TestGetAmendments tests cross-entity range query encoding
func TestGetAmendments(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/amendments", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, []string{"mat-1", "mat-2"}, q["entity_ids"])
		assert.Equal(t, "raw_material", q.Get("entity_type"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("start_time"))
		assert.Equal(t, "2024-02-01T00:00:00Z", q.Get("end_time"))
		assert.Equal(t, "50", q.Get("limit"))

		respond(w, http.StatusOK, []*types.AmendmentRecord{{ID: "amd-1"}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	records, err := c.GetAmendments(context.Background(), AmendmentQuery{
		EntityIDs:  []string{"mat-1", "mat-2"},
		EntityType: types.EntityRawMaterial,
		StartTime:  start,
		EndTime:    end,
		Limit:      50,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "amd-1", records[0].ID)
}

// TestGetDisplayList tests cross-entity display list retrieval
func TestGetDisplayList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/amendments/display", r.URL.Path)
		require.Equal(t, "en-IN", r.URL.Query().Get("locale"))
		require.NotEmpty(t, r.URL.Query().Get("start_time"))

		respond(w, http.StatusOK, []types.DisplayEntry{{
			Changes: []types.PresentedChange{
				{FieldName: "expiryDate", DisplayFrom: "10 Aug 2024", DisplayTo: "10 Aug 2025"},
			},
		}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	entries, err := c.GetDisplayList(context.Background(), AmendmentQuery{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}, "en-IN")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "expiryDate", entries[0].Changes[0].FieldName)
}

// TestClientErrorResponse tests error envelope handling
func TestClientErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":  http.StatusNotFound,
			"error": "amendment not found",
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.GetAmendment(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amendment not found")
}

// TestClientRetry tests that transient failures are retried
func TestClientRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			respondError(w, http.StatusInternalServerError, "transient")
			return
		}
		respond(w, http.StatusOK, []*types.AmendmentRecord{})
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL: srv.URL,
		Retry: &retry.Config{
			Enabled:  true,
			Attempts: 3,
			Interval: 10 * time.Millisecond,
		},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.GetEntityAmendments(context.Background(), "mat-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":  status,
		"error": msg,
	})
}
