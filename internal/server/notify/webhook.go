package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"amendtrail/internal/types"
	"amendtrail/internal/version"

	"go.uber.org/zap"
)

// WebhookConfig represents webhook notifier configuration
type WebhookConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	URL        string            `mapstructure:"url"`
	Secret     string            `mapstructure:"secret"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	Headers    map[string]string `mapstructure:"headers"`
	CommonData map[string]any    `mapstructure:"common_data"`
}

// WebhookNotifier represents webhook notifier
type WebhookNotifier struct {
	config *WebhookConfig
	logger *zap.Logger
	client *http.Client
}

// WebhookPayload represents the standard webhook payload structure
type WebhookPayload struct {
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	EntityID  string    `json:"entity_id,omitempty"`
}

// NewWebhookNotifier creates new webhook notifier
func NewWebhookNotifier(cfg *WebhookConfig, logger *zap.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  true,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &WebhookNotifier{
		config: cfg,
		logger: logger,
		client: client,
	}, nil
}

// NotifyAmendment sends a webhook for a recorded amendment
func (n *WebhookNotifier) NotifyAmendment(record *types.AmendmentRecord, changes []types.PresentedChange) error {
	data := map[string]any{
		"amendment_id": record.ID,
		"entity_type":  record.EntityType,
		"entity_label": record.EntityLabel,
		"amended_by":   record.AmendedBy,
		"amended_at":   record.AmendedAt,
		"changes":      changes,
	}
	for k, v := range n.config.CommonData {
		data[k] = v
	}

	payload := WebhookPayload{
		EventType: "amendment.recorded",
		EventID:   generateEventID(),
		Timestamp: time.Now(),
		EntityID:  record.EntityID,
		Data:      data,
	}

	return n.sendWebhook(payload)
}

// sendWebhook sends a webhook
func (n *WebhookNotifier) sendWebhook(payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Calculate signature if secret is configured
	signature := ""
	if n.config.Secret != "" {
		signature = calculateSignature(data, []byte(n.config.Secret))
	}

	// Send request with retry, rebuilding the request each attempt
	var resp *http.Response
	for attempt := 1; attempt <= n.config.MaxRetries; attempt++ {
		req, rerr := http.NewRequest(http.MethodPost, n.config.URL, bytes.NewBuffer(data))
		if rerr != nil {
			return fmt.Errorf("failed to create request: %w", rerr)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "amendtrail-webhook/"+version.GetInfo().Version)
		req.Header.Set("X-Amendtrail-Event", payload.EventType)
		req.Header.Set("X-Amendtrail-Delivery", payload.EventID)
		if signature != "" {
			req.Header.Set("X-Amendtrail-Signature", signature)
		}
		for k, v := range n.config.Headers {
			req.Header.Set(k, v)
		}

		resp, err = n.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}

		if attempt < n.config.MaxRetries {
			time.Sleep(calculateBackoff(attempt))
		}
	}

	if err != nil {
		return fmt.Errorf("failed to send webhook after %d attempts: %w", n.config.MaxRetries, err)
	}

	if resp == nil {
		return fmt.Errorf("failed to send webhook after %d attempts: no response", n.config.MaxRetries)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			n.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return nil
}

// generateEventID generates a random event ID
func generateEventID() string {
	return fmt.Sprintf("%d-%x", time.Now().UnixMilli(), randomBytes(4))
}

// calculateSignature calculates the signature
func calculateSignature(payload []byte, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// calculateBackoff calculates the backoff
func calculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(attempt*attempt) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// randomBytes generates random bytes
func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// Health checks the health of the notifier
func (n *WebhookNotifier) Health(_ context.Context) error {
	return nil
}
