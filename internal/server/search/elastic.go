// Package search indexes amendment records into Elasticsearch and serves
// query-string searches over them. The index is optional; when it is not
// configured the service reports search as disabled.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"amendtrail/internal/types"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Config represents search configuration
type Config struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Result is one search hit
type Result struct {
	ID     string                 `json:"id"`
	Record *types.AmendmentRecord `json:"record"`
}

// searchResponse mirrors the Elasticsearch search response shape
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Index indexes and searches amendment records
type Index struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// New creates new search index client
func New(cfg *Config, logger *zap.Logger) (*Index, error) {
	if cfg == nil || len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch configuration is nil or empty")
	}

	index := cfg.Index
	if index == "" {
		index = "amendtrail-amendments"
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation error: %w", err)
	}

	return &Index{
		client: es,
		index:  index,
		logger: logger,
	}, nil
}

// IndexAmendment indexes one amendment record
func (i *Index) IndexAmendment(ctx context.Context, record *types.AmendmentRecord) error {
	var b strings.Builder
	if err := json.NewEncoder(&b).Encode(record); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: record.ID,
		Body:       strings.NewReader(b.String()),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("elasticsearch index error: %w", err)
	}
	defer closeResponseBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.String())
	}
	return nil
}

// Search runs a query-string search over indexed amendments
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}

	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"query_string": map[string]any{
				"query":  query,
				"fields": []string{"entity_label", "amended_by", "entity_id"},
			},
		},
		"sort": []map[string]any{
			{"amended_at": map[string]string{"order": "desc"}},
		},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(strings.NewReader(string(encoded))),
		i.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search error: %w", err)
	}
	defer closeResponseBody(res.Body)

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("error parsing the response body: %w", err)
	}

	results := make([]Result, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		record := &types.AmendmentRecord{}
		if err := json.Unmarshal(hit.Source, record); err != nil {
			i.logger.Warn("skipping malformed search hit",
				zap.String("id", hit.ID),
				zap.Error(err))
			continue
		}
		results = append(results, Result{ID: hit.ID, Record: record})
	}
	return results, nil
}

// closeResponseBody closes a response body, draining it first
func closeResponseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
