// Package client provides an HTTP client for the amendtrail server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"amendtrail/internal/retry"
	"amendtrail/internal/types"
	"amendtrail/internal/version"

	"go.uber.org/zap"
)

// Config represents client configuration
type Config struct {
	// BaseURL is the server address, e.g. http://localhost:8080
	BaseURL string
	// Token is an optional bearer token
	Token   string
	Timeout time.Duration
	Retry   *retry.Config
}

// Client talks to the amendtrail server
type Client struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// envelope mirrors the server response wrapper
type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// New creates a new client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// RecordAmendment submits a new amendment and returns its assigned ID
func (c *Client) RecordAmendment(ctx context.Context, record *types.AmendmentRecord) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/amendments", nil, record, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetAmendment returns one amendment by ID
func (c *Client) GetAmendment(ctx context.Context, id string) (*types.AmendmentRecord, error) {
	var record types.AmendmentRecord
	path := "/api/v1/amendments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AmendmentQuery represents range query parameters for cross-entity reads.
// StartTime and EndTime are required by the server.
type AmendmentQuery struct {
	EntityIDs  []string
	EntityType types.EntityType
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// values encodes the query as URL parameters
func (q AmendmentQuery) values() url.Values {
	v := url.Values{}
	for _, id := range q.EntityIDs {
		v.Add("entity_ids", id)
	}
	if q.EntityType != "" {
		v.Set("entity_type", string(q.EntityType))
	}
	v.Set("start_time", q.StartTime.Format(time.RFC3339))
	v.Set("end_time", q.EndTime.Format(time.RFC3339))
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return v
}

// GetAmendments returns raw amendment records matching the query
func (c *Client) GetAmendments(ctx context.Context, query AmendmentQuery) ([]*types.AmendmentRecord, error) {
	var records []*types.AmendmentRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/amendments", query.values(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetDisplayList returns the rendered change history for amendments matching
// the query, across entities
func (c *Client) GetDisplayList(ctx context.Context, query AmendmentQuery, locale string) ([]types.DisplayEntry, error) {
	q := query.values()
	if locale != "" {
		q.Set("locale", locale)
	}

	var entries []types.DisplayEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/amendments/display", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntityAmendments returns the raw amendment log for one entity
func (c *Client) GetEntityAmendments(ctx context.Context, entityID string, limit int) ([]*types.AmendmentRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var records []*types.AmendmentRecord
	path := "/api/v1/entities/" + url.PathEscape(entityID) + "/amendments"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetEntityDisplayList returns the rendered change history for one entity
func (c *Client) GetEntityDisplayList(ctx context.Context, entityID, locale string) ([]types.DisplayEntry, error) {
	q := url.Values{}
	if locale != "" {
		q.Set("locale", locale)
	}

	var entries []types.DisplayEntry
	path := "/api/v1/entities/" + url.PathEscape(entityID) + "/amendments/display"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SearchAmendments runs a full-text search over indexed amendments
func (c *Client) SearchAmendments(ctx context.Context, query string, limit int) ([]*types.AmendmentRecord, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var records []*types.AmendmentRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/amendments/search", q, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// do executes one API call, retrying per the configured policy
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return retry.Execute(ctx, c.config.Retry, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "amendtrail-client/"+version.GetInfo().Version)
		if c.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.Token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned status %d: %s", resp.StatusCode, env.Error)
		}

		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("failed to decode response data: %w", err)
			}
		}
		return nil
	})
}
