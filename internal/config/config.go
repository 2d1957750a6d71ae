// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Output    OutputConfig              `mapstructure:"output"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Artifact  ArtifactConfig            `mapstructure:"artifact"`
	Notify    NotifyConfig              `mapstructure:"notify"`
	Platforms map[string]PlatformConfig `mapstructure:"platforms"`
}

// OutputConfig sets where CSV artifacts land.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DatabaseConfig controls the optional Postgres sink.
type DatabaseConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ArtifactConfig controls optional upload of the finished CSV to GCS.
type ArtifactConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for publish-subscribe run summaries.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// PlatformConfig governs one platform's fetch and pacing behavior.
// Delay fields are whole seconds.
type PlatformConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ListingURL     string `mapstructure:"listing_url"`
	UserAgent      string `mapstructure:"user_agent"`
	PageSize       int    `mapstructure:"page_size"`
	MaxPages       int    `mapstructure:"max_pages"`
	MaxRecords     int    `mapstructure:"max_records"`
	BatchSize      int    `mapstructure:"batch_size"`
	BatchDelaySec  int    `mapstructure:"batch_delay_seconds"`
	RateLimitSec   int    `mapstructure:"rate_limit_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryDelaySec  int    `mapstructure:"retry_delay_seconds"`
	PageTimeoutSec int    `mapstructure:"page_timeout_seconds"`
	ProgressEvery  int    `mapstructure:"progress_every"`
}

// BatchDelay returns the pause applied at batch boundaries.
func (p PlatformConfig) BatchDelay() time.Duration {
	return time.Duration(p.BatchDelaySec) * time.Second
}

// RateLimitDelay returns the spacing between consecutive records.
func (p PlatformConfig) RateLimitDelay() time.Duration {
	return time.Duration(p.RateLimitSec) * time.Second
}

// RetryDelay returns the base backoff between retry attempts.
func (p PlatformConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySec) * time.Second
}

// PageTimeout returns the per-page navigation budget.
func (p PlatformConfig) PageTimeout() time.Duration {
	return time.Duration(p.PageTimeoutSec) * time.Second
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", "data/harvest")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("database.table", "templates")
	v.SetDefault("artifact.prefix", "harvests")

	v.SetDefault("platforms.zapier.listing_url", "https://zapier.com/templates")
	v.SetDefault("platforms.zapier.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("platforms.zapier.batch_size", 50)
	v.SetDefault("platforms.zapier.batch_delay_seconds", 10)
	v.SetDefault("platforms.zapier.rate_limit_seconds", 3)
	v.SetDefault("platforms.zapier.max_retries", 3)
	v.SetDefault("platforms.zapier.retry_delay_seconds", 5)
	v.SetDefault("platforms.zapier.page_timeout_seconds", 30)
	v.SetDefault("platforms.zapier.progress_every", 10)

	v.SetDefault("platforms.make.base_url", "https://www.make.com")
	v.SetDefault("platforms.make.page_size", 100)
	v.SetDefault("platforms.make.max_pages", 10)
	v.SetDefault("platforms.make.max_retries", 3)
	v.SetDefault("platforms.make.retry_delay_seconds", 5)
	v.SetDefault("platforms.make.progress_every", 50)

	v.SetDefault("platforms.n8n.base_url", "https://api.n8n.io")
	v.SetDefault("platforms.n8n.page_size", 100)
	v.SetDefault("platforms.n8n.max_pages", 100)
	v.SetDefault("platforms.n8n.max_retries", 3)
	v.SetDefault("platforms.n8n.retry_delay_seconds", 5)
	v.SetDefault("platforms.n8n.progress_every", 100)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic is set")
	}
	for name, p := range c.Platforms {
		if p.BatchDelaySec < 0 || p.RateLimitSec < 0 || p.RetryDelaySec < 0 {
			return fmt.Errorf("platforms.%s delays must be >= 0", name)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("platforms.%s.max_retries must be >= 0", name)
		}
	}
	return nil
}

// Platform returns the named platform config, or an error listing the
// known platforms when it is absent.
func (c Config) Platform(name string) (PlatformConfig, error) {
	p, ok := c.Platforms[name]
	if !ok {
		known := make([]string, 0, len(c.Platforms))
		for k := range c.Platforms {
			known = append(known, k)
		}
		return PlatformConfig{}, fmt.Errorf("unknown platform %q (configured: %s)", name, strings.Join(known, ", "))
	}
	return p, nil
}
