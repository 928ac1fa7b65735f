package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"amendtrail/internal/server/api/response"
	"amendtrail/internal/server/config"
	"amendtrail/internal/server/service"
	"amendtrail/internal/server/storage"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Storage = storage.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "amendtrail_test.db"),
	}
	require.NoError(t, cfg.Storage.Validate())

	logger := zaptest.NewLogger(t)
	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)

	svc, err := service.NewService(cfg, store, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, svc.Stop())
	})

	engine := gin.New()
	NewAPI(svc, logger).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// TestRecordAmendmentEndpoint tests the ingest endpoint
func TestRecordAmendmentEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/amendments", map[string]any{
		"entity_id":    "mat-1",
		"entity_type":  "raw_material",
		"entity_label": "Nux Vomica 30C",
		"amended_by":   "assistant.rao",
		"amended_at":   "2024-01-10T09:00:00Z",
		"changes": map[string]string{
			"quantity":   "10 → 15",
			"expiryDate": "2024-08-10 → 2025-08-10",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["id"])
}

// TestRecordAmendmentEndpointRejectsInvalid tests ingest validation
func TestRecordAmendmentEndpointRejectsInvalid(t *testing.T) {
	handler := newTestHandler(t)

	// Missing entity_id
	w := doJSON(t, handler, http.MethodPost, "/api/v1/amendments", map[string]any{
		"entity_type":  "raw_material",
		"entity_label": "Nux Vomica 30C",
		"amended_by":   "assistant.rao",
		"amended_at":   "2024-01-10T09:00:00Z",
		"changes":      map[string]string{"quantity": "10 → 15"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Changes must be a JSON object
	w = doJSON(t, handler, http.MethodPost, "/api/v1/amendments", map[string]any{
		"entity_id":    "mat-1",
		"entity_type":  "raw_material",
		"entity_label": "Nux Vomica 30C",
		"amended_by":   "assistant.rao",
		"amended_at":   "2024-01-10T09:00:00Z",
		"changes":      []string{"quantity"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestEntityDisplayEndpoint tests the rendered history endpoint
func TestEntityDisplayEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/amendments", map[string]any{
		"entity_id":    "mat-1",
		"entity_type":  "raw_material",
		"entity_label": "Nux Vomica 30C",
		"amended_by":   "assistant.rao",
		"amended_at":   "2024-01-10T09:00:00Z",
		"changes": map[string]string{
			"expiryDate": "2024-08-10 → 2025-08-10",
			"updatedAt":  "2024-01-09 → 2024-01-10",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/v1/entities/mat-1/amendments/display", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Changes []struct {
				FieldName   string `json:"field_name"`
				DisplayFrom string `json:"display_from"`
				DisplayTo   string `json:"display_to"`
			} `json:"changes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Len(t, resp.Data[0].Changes, 1)
	assert.Equal(t, "expiryDate", resp.Data[0].Changes[0].FieldName)
	assert.Equal(t, "10 Aug 2024", resp.Data[0].Changes[0].DisplayFrom)
	assert.Equal(t, "10 Aug 2025", resp.Data[0].Changes[0].DisplayTo)
}

// TestEntityEndpointsEmptyLog tests that an entity with no amendments is
// served as a success with an empty array, not a 404
func TestEntityEndpointsEmptyLog(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/entities/brand-new/amendments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.JSONEq(t, "[]", string(raw.Data))

	w = doJSON(t, handler, http.MethodGet, "/api/v1/entities/brand-new/amendments/display", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.JSONEq(t, "[]", string(raw.Data))
}

// TestGetAmendmentNotFound tests the 404 path
func TestGetAmendmentNotFound(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/amendments/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestAmendmentsRangeValidation tests range query parameter validation
func TestAmendmentsRangeValidation(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/amendments", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, handler, http.MethodGet,
		"/api/v1/amendments?start_time=2024-02-01T00:00:00Z&end_time=2024-01-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestSearchUnavailable tests search without a configured index
func TestSearchUnavailable(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/amendments/search?q=nux", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestHealthEndpoint tests the health endpoint
func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
