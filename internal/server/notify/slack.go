package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"amendtrail/internal/types"

	"go.uber.org/zap"
)

// SlackConfig represents Slack notifier configuration
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
	IconEmoji  string `mapstructure:"icon_emoji"`
}

// SlackNotifier represents Slack notifier
type SlackNotifier struct {
	config *SlackConfig
	logger *zap.Logger
	client *http.Client
}

// SlackMessage represents Slack message
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents Slack attachment
type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

// SlackField represents Slack field
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates new SlackNotifier
func NewSlackNotifier(cfg *SlackConfig, logger *zap.Logger) (*SlackNotifier, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("slack notifier is disabled")
	}

	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		},
	}

	return &SlackNotifier{
		config: cfg,
		logger: logger,
		client: client,
	}, nil
}

// NotifyAmendment sends a Slack message for a recorded amendment
func (n *SlackNotifier) NotifyAmendment(record *types.AmendmentRecord, changes []types.PresentedChange) error {
	fields := make([]SlackField, 0, len(changes)+2)
	fields = append(fields,
		SlackField{Title: "Entity", Value: record.EntityLabel, Short: true},
		SlackField{Title: "Amended by", Value: record.AmendedBy, Short: true},
	)
	for _, c := range changes {
		fields = append(fields, SlackField{
			Title: c.FieldName,
			Value: fmt.Sprintf("%s → %s", c.DisplayFrom, c.DisplayTo),
			Short: true,
		})
	}

	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.config.Username,
		IconEmoji: n.config.IconEmoji,
		Attachments: []SlackAttachment{{
			Color:     "#439FE0",
			Title:     "Record Amended",
			Text:      fmt.Sprintf("%d field(s) changed on %s", len(changes), record.EntityLabel),
			Fields:    fields,
			Footer:    "amendtrail",
			Timestamp: record.AmendedAt.Unix(),
		}},
	}

	return n.send(msg)
}

// send sends a slack message
func (n *SlackNotifier) send(msg SlackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			n.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api error: status code %d", resp.StatusCode)
	}

	return nil
}

// Health checks the health of the notifier
func (n *SlackNotifier) Health(_ context.Context) error {
	return nil
}
