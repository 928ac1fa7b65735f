package config

import (
	"fmt"
	"time"

	"amendtrail/internal/changelog"
	"amendtrail/internal/server/cache"
	"amendtrail/internal/server/events"
	"amendtrail/internal/server/notify"
	"amendtrail/internal/server/search"
	"amendtrail/internal/server/storage"

	"github.com/spf13/viper"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Storage storage.Config `mapstructure:"storage"`
	Display DisplayConfig  `mapstructure:"display"`
	Cache   cache.Config   `mapstructure:"cache"`
	Events  events.Config  `mapstructure:"events"`
	Search  search.Config  `mapstructure:"search"`
	Notify  notify.Config  `mapstructure:"notify"`
	API     APIConfig      `mapstructure:"api"`
	Log     LogConfig      `mapstructure:"log"`
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents the TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DisplayConfig represents change rendering configuration
type DisplayConfig struct {
	// Locale selects the date layout for rendered temporal values
	Locale string `mapstructure:"locale"`
	// ExcludedFields replaces the built-in bookkeeping exclusions when set
	ExcludedFields []string `mapstructure:"excluded_fields"`
}

// APIConfig represents the API configuration
type APIConfig struct {
	// Authentication
	Auth AuthConfig `mapstructure:"auth"`

	// CORS settings
	CORS CORSConfig `mapstructure:"cors"`

	// Rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// AuthConfig represents the authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Tokens  []string `mapstructure:"tokens"`
}

// CORSConfig represents the CORS configuration
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// RateLimitConfig represents the rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LogConfig represents the logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, console
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig loads server configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}

	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}

	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}

	if config.Display.Locale == "" {
		config.Display.Locale = changelog.DefaultLocale
	}

	if config.API.RateLimit.Window == 0 {
		config.API.RateLimit.Window = time.Minute
	}

	if config.API.RateLimit.Requests == 0 {
		config.API.RateLimit.Requests = 60
	}

	if config.API.CORS.MaxAge == 0 {
		config.API.CORS.MaxAge = 86400
	}

	if config.Log.MaxSize == 0 {
		config.Log.MaxSize = 100
	}

	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 3
	}

	if config.Log.MaxAge == 0 {
		config.Log.MaxAge = 28
	}

	if len(config.API.CORS.AllowedMethods) == 0 {
		config.API.CORS.AllowedMethods = []string{
			"GET", "POST", "OPTIONS",
		}
	}

	if len(config.API.CORS.AllowedHeaders) == 0 {
		config.API.CORS.AllowedHeaders = []string{
			"Content-Type", "Authorization", "X-Request-ID",
		}
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if config.Server.TLS.Enabled {
		if config.Server.TLS.CertFile == "" || config.Server.TLS.KeyFile == "" {
			return fmt.Errorf("invalid TLS config: cert and key files are required")
		}
	}

	if config.Cache.Enabled && config.Cache.Addr == "" {
		return fmt.Errorf("invalid cache config: redis addr is required")
	}

	if config.Events.Enabled && len(config.Events.Brokers) == 0 {
		return fmt.Errorf("invalid events config: at least one broker is required")
	}

	if config.Search.Enabled && len(config.Search.Addresses) == 0 {
		return fmt.Errorf("invalid search config: at least one address is required")
	}

	if config.Notify.Webhook.Enabled && config.Notify.Webhook.URL == "" {
		return fmt.Errorf("invalid notification config: webhook URL is required")
	}

	if config.Notify.Slack.Enabled && config.Notify.Slack.WebhookURL == "" {
		return fmt.Errorf("invalid notification config: slack webhook URL is required")
	}

	if config.API.Auth.Enabled && len(config.API.Auth.Tokens) == 0 {
		return fmt.Errorf("invalid auth config: at least one token is required")
	}

	return nil
}
