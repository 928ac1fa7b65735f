// Package notify delivers amendment notifications to external channels.
// Notifications are queued and sent in the background so the ingest path
// never waits on a downstream webhook.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"amendtrail/internal/types"

	"go.uber.org/zap"
)

// NotifierType represents the type of notifier
type NotifierType string

const (
	NotifierSlack   NotifierType = "slack"
	NotifierWebhook NotifierType = "webhook"
)

// Config represents notification configuration
type Config struct {
	Enabled   bool            `mapstructure:"enabled"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
}

// RateLimitConfig represents notification rate limiting configuration
type RateLimitConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	MaxEvents int           `mapstructure:"max_events"`
}

// Notifier represents notifier interface
type Notifier interface {
	// NotifyAmendment sends a notification for a recorded amendment
	NotifyAmendment(record *types.AmendmentRecord, changes []types.PresentedChange) error

	// Health checks the health of the notifier
	Health(ctx context.Context) error
}

// notification represents a notification to be sent
type notification struct {
	notifierType NotifierType
	notifyFunc   func(Notifier) error
}

// Manager represents notifier manager
type Manager struct {
	config      *Config
	logger      *zap.Logger
	notifiers   map[NotifierType]Notifier
	mu          sync.RWMutex
	rateLimiter *RateLimiter
	notifyChan  chan notification
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// RateLimiter implements rate limiting for notifications
type RateLimiter struct {
	mu        sync.Mutex
	events    map[NotifierType][]time.Time
	interval  time.Duration
	maxEvents int
}

// AllowNotification checks if a notification is allowed under rate limits
func (r *RateLimiter) AllowNotification(notifierType NotifierType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	timestamps := r.events[notifierType]

	valid := make([]time.Time, 0)
	for _, ts := range timestamps {
		if now.Sub(ts) < r.interval {
			valid = append(valid, ts)
		}
	}
	r.events[notifierType] = valid

	if len(valid) >= r.maxEvents {
		return false
	}

	r.events[notifierType] = append(r.events[notifierType], now)
	return true
}

// NewManager creates new notifier manager
func NewManager(cfg *Config, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notify configuration is nil")
	}

	interval := cfg.RateLimit.Interval
	if interval == 0 {
		interval = time.Minute
	}
	maxEvents := cfg.RateLimit.MaxEvents
	if maxEvents == 0 {
		maxEvents = 30
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:    cfg,
		logger:    logger,
		notifiers: make(map[NotifierType]Notifier),
		rateLimiter: &RateLimiter{
			events:    make(map[NotifierType][]time.Time),
			interval:  interval,
			maxEvents: maxEvents,
		},
		notifyChan: make(chan notification, 100),
		ctx:        ctx,
		cancel:     cancel,
	}

	// Initialize enabled notifiers
	if cfg.Slack.Enabled {
		if n, err := NewSlackNotifier(&cfg.Slack, logger); err == nil {
			m.notifiers[NotifierSlack] = n
		} else {
			logger.Error("Failed to initialize slack notifier", zap.Error(err))
		}
	}

	if cfg.Webhook.Enabled {
		if n, err := NewWebhookNotifier(&cfg.Webhook, logger); err == nil {
			m.notifiers[NotifierWebhook] = n
		} else {
			logger.Error("Failed to initialize webhook notifier", zap.Error(err))
		}
	}

	// Start notification processor
	m.wg.Add(1)
	go m.processNotifications()

	return m, nil
}

// processNotifications handles notification sending in background
func (m *Manager) processNotifications() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case n := <-m.notifyChan:
			m.mu.RLock()
			notifier, ok := m.notifiers[n.notifierType]
			m.mu.RUnlock()

			if !ok {
				continue
			}

			if !m.rateLimiter.AllowNotification(n.notifierType) {
				m.logger.Warn("Rate limit exceeded for notifier",
					zap.String("type", string(n.notifierType)))
				continue
			}

			if err := n.notifyFunc(notifier); err != nil {
				m.logger.Error("Failed to send notification",
					zap.String("type", string(n.notifierType)),
					zap.Error(err))
			}
		}
	}
}

// NotifyAmendment queues an amendment notification for every enabled notifier.
// Records whose change set filtered down to nothing are skipped.
func (m *Manager) NotifyAmendment(record *types.AmendmentRecord, changes []types.PresentedChange) {
	if len(changes) == 0 {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for t := range m.notifiers {
		notifyType := t // Capture for closure
		m.notifyChan <- notification{
			notifierType: notifyType,
			notifyFunc: func(n Notifier) error {
				return n.NotifyAmendment(record, changes)
			},
		}
	}
}

// Stop gracefully stops the notification manager
func (m *Manager) Stop() error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timeout waiting for notifications to complete")
	}
}

// Health checks every configured notifier and returns the first failure
func (m *Manager) Health(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for t, notifier := range m.notifiers {
		if err := notifier.Health(ctx); err != nil {
			return fmt.Errorf("%s notifier unhealthy: %w", t, err)
		}
	}
	return nil
}

// IsEnabled checks if notifications are enabled
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Enabled
}

// IsNotifierEnabled checks if a notifier is enabled
func (m *Manager) IsNotifierEnabled(notifierType NotifierType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.notifiers[notifierType]
	return ok
}
