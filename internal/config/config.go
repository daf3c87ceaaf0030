// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// EnvPrefix namespaces environment overrides, e.g. REVIEWS_RPC_MAX_PAGES.
const EnvPrefix = "REVIEWS"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Static   StaticConfig   `mapstructure:"static"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Privacy  PrivacyConfig  `mapstructure:"privacy"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig holds settings shared by every outbound client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	// HostRPS caps requests per second to any one host across all workers.
	HostRPS   float64 `mapstructure:"host_rps"`
	HostBurst int     `mapstructure:"host_burst"`
}

// RPCConfig tunes the primary channel.
type RPCConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	BuildLabel       string `mapstructure:"build_label"`
	PageSize         int    `mapstructure:"page_size"`
	MaxPages         int    `mapstructure:"max_pages"`
	InterPageDelayMs int    `mapstructure:"inter_page_delay_ms"`
}

// HeadlessConfig configures the modal render channel.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	SettleDelayMs int  `mapstructure:"settle_delay_ms"`
	MaxScrolls    int  `mapstructure:"max_scrolls"`
}

// StaticConfig configures the static fetch channel.
type StaticConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RespectRobots bool `mapstructure:"respect_robots"`
}

// BatchConfig sizes the worker pool used for batch and API jobs.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// DefaultsConfig fills request fields the caller leaves empty.
type DefaultsConfig struct {
	Country  string `mapstructure:"country"`
	Language string `mapstructure:"language"`
	Limit    int    `mapstructure:"limit"`
	// MaxLimit is the largest limit a caller may request.
	MaxLimit int    `mapstructure:"max_limit"`
	Sort     string `mapstructure:"sort"`
}

// PrivacyConfig controls author anonymization.
type PrivacyConfig struct {
	// AuthorKey, when set, keys the author hash (HMAC) so tokens cannot be
	// matched against hashes of known names.
	AuthorKey string `mapstructure:"author_key"`
}

// TracingConfig controls OpenTelemetry sampling.
type TracingConfig struct {
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.host_rps", 2.0)
	v.SetDefault("http.host_burst", 2)
	v.SetDefault("rpc.endpoint", "")
	v.SetDefault("rpc.build_label", "")
	v.SetDefault("rpc.page_size", 200)
	v.SetDefault("rpc.max_pages", 50)
	v.SetDefault("rpc.inter_page_delay_ms", 500)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_delay_ms", 1200)
	v.SetDefault("headless.max_scrolls", 120)
	v.SetDefault("static.enabled", true)
	v.SetDefault("static.respect_robots", false)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.queue_depth", 64)
	v.SetDefault("defaults.country", "us")
	v.SetDefault("defaults.language", "en")
	v.SetDefault("defaults.limit", 100)
	v.SetDefault("defaults.max_limit", 5000)
	v.SetDefault("defaults.sort", "newest")
	v.SetDefault("privacy.author_key", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.HostRPS < 0 {
		return fmt.Errorf("http.host_rps must be >= 0")
	}
	if c.RPC.PageSize <= 0 {
		return fmt.Errorf("rpc.page_size must be > 0")
	}
	if c.RPC.MaxPages <= 0 {
		return fmt.Errorf("rpc.max_pages must be > 0")
	}
	if c.RPC.InterPageDelayMs < 0 {
		return fmt.Errorf("rpc.inter_page_delay_ms must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Batch.QueueDepth <= 0 {
		return fmt.Errorf("batch.queue_depth must be > 0")
	}
	if c.Defaults.Limit <= 0 {
		return fmt.Errorf("defaults.limit must be > 0")
	}
	if c.Defaults.MaxLimit <= 0 || c.Defaults.MaxLimit > review.MaxLimit {
		return fmt.Errorf("defaults.max_limit must be within [1, %d]", review.MaxLimit)
	}
	if c.Defaults.Limit > c.Defaults.MaxLimit {
		return fmt.Errorf("defaults.limit must be <= defaults.max_limit")
	}
	if _, err := review.ParseSort(c.Defaults.Sort); err != nil {
		return fmt.Errorf("defaults.sort: %w", err)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Timeout is the per-call network timeout shared by the HTTP channels.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// InterPageDelay is the primary channel's politeness delay.
func (c Config) InterPageDelay() time.Duration {
	return time.Duration(c.RPC.InterPageDelayMs) * time.Millisecond
}

// ApplyDefaults fills empty request fields from the defaults section.
func (c Config) ApplyDefaults(req review.ExtractionRequest) review.ExtractionRequest {
	if req.Country == "" {
		req.Country = c.Defaults.Country
	}
	if req.Language == "" {
		req.Language = c.Defaults.Language
	}
	if req.Limit == 0 {
		req.Limit = c.Defaults.Limit
	}
	if req.Sort == 0 {
		if sort, err := review.ParseSort(c.Defaults.Sort); err == nil {
			req.Sort = sort
		}
	}
	return req
}

// CheckLimit rejects a request whose limit exceeds defaults.max_limit. An
// unset ceiling falls back to review.MaxLimit.
func (c Config) CheckLimit(req review.ExtractionRequest) error {
	ceiling := c.Defaults.MaxLimit
	if ceiling <= 0 || ceiling > review.MaxLimit {
		ceiling = review.MaxLimit
	}
	if req.Limit > ceiling {
		return fmt.Errorf("%w: limit must be <= %d, got %d", review.ErrInvalidRequest, ceiling, req.Limit)
	}
	return nil
}
