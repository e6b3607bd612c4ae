package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	DeepL     DeepLConfig     `mapstructure:"deepl"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// QueueConfig holds task bus settings
type QueueConfig struct {
	// MaxRetries bounds redelivery of a failed retryable task before it is
	// parked on the poison topic.
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	BufferSize      int           `mapstructure:"buffer_size"`
}

// ProvidersConfig selects the default provider identifier per capability.
// Analysis requirements may override the analysis provider per requirement
// via their llm_id.
type ProvidersConfig struct {
	Translation string `mapstructure:"translation"`
	Analysis    string `mapstructure:"analysis"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DeepLConfig holds DeepL API settings
type DeepLConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // empty selects the free-tier endpoint
}

// FeedsConfig holds the web-feed connector settings
type FeedsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	PollCron string `mapstructure:"poll_cron"`
	Feeds    []Feed `mapstructure:"feeds"`
}

// Feed represents a single monitored web feed
type Feed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
	DeepLRequestsPerMinute     int `mapstructure:"deepl_requests_per_minute"`
	FeedRequestsPerSecond      int `mapstructure:"feed_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".channelwatch"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("CHANNELWATCH")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.driver", "CHANNELWATCH_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "CHANNELWATCH_DATABASE_DSN")
	v.BindEnv("anthropic.api_key", "CHANNELWATCH_ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "CHANNELWATCH_ANTHROPIC_MODEL")
	v.BindEnv("deepl.api_key", "CHANNELWATCH_DEEPL_API_KEY")
	v.BindEnv("providers.translation", "CHANNELWATCH_PROVIDERS_TRANSLATION")
	v.BindEnv("providers.analysis", "CHANNELWATCH_PROVIDERS_ANALYSIS")
	v.BindEnv("feeds.enabled", "CHANNELWATCH_FEEDS_ENABLED")
	v.BindEnv("logging.level", "CHANNELWATCH_LOGGING_LEVEL")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/channelwatch.db")

	// Queue defaults
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.initial_interval", "2s")
	v.SetDefault("queue.max_interval", "1m")
	v.SetDefault("queue.buffer_size", 64)

	// Provider defaults
	v.SetDefault("providers.translation", "anthropic")
	v.SetDefault("providers.analysis", "anthropic")

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.2)

	// Feed connector defaults
	v.SetDefault("feeds.enabled", false)
	v.SetDefault("feeds.poll_cron", "*/15 * * * *") // Every 15 minutes

	// Rate limit defaults
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.deepl_requests_per_minute", 10)
	v.SetDefault("rate_limit.feed_requests_per_second", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Providers.Translation == "" {
		return fmt.Errorf("providers.translation is required")
	}
	if c.Providers.Analysis == "" {
		return fmt.Errorf("providers.analysis is required")
	}

	// The configured default providers must have usable credentials, or every
	// task would fail with an unresolvable provider at runtime.
	switch c.Providers.Translation {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic.api_key is required when providers.translation is %q", c.Providers.Translation)
		}
	case "deepl":
		if c.DeepL.APIKey == "" {
			return fmt.Errorf("deepl.api_key is required when providers.translation is %q", c.Providers.Translation)
		}
	}
	if c.Providers.Analysis == "anthropic" && c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required when providers.analysis is %q", c.Providers.Analysis)
	}

	if c.Feeds.Enabled && len(c.Feeds.Feeds) == 0 {
		return fmt.Errorf("feeds.enabled is set but no feeds are configured")
	}

	return nil
}
