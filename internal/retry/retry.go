package retry

import (
	"context"
	"fmt"
	"time"
)

// Func defines the function signature for a retryable operation
type Func func(ctx context.Context) error

// Config represents retry configuration
type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

// Validate validates retry configuration
func (c *Config) Validate() error {
	if c.Attempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("retry interval must be positive")
	}
	return nil
}

// Execute performs an operation, retrying with a fixed interval while the
// context stays alive. A nil or disabled config runs the operation once.
func Execute(ctx context.Context, cfg *Config, op Func) error {
	if cfg == nil || !cfg.Enabled {
		return op(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	var lastErr error
	for i := 1; i <= cfg.Attempts; i++ {
		if err := op(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if i == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", cfg.Attempts, lastErr)
}
