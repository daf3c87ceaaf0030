package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
http:
  timeout_seconds: 45
  user_agent: review-agent
  host_rps: 5
  host_burst: 3
rpc:
  page_size: 150
  max_pages: 8
  inter_page_delay_ms: 250
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
  settle_delay_ms: 400
  max_scrolls: 60
static:
  enabled: false
  respect_robots: true
batch:
  concurrency: 6
  queue_depth: 128
defaults:
  country: de
  language: de
  limit: 40
  sort: most_relevant
privacy:
  author_key: pepper
tracing:
  sample_ratio: 0.25
logging:
  development: false
  level: warn
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.RPC.PageSize != 150 || cfg.RPC.MaxPages != 8 {
		t.Fatalf("expected rpc overrides to apply: %+v", cfg.RPC)
	}
	if got := cfg.InterPageDelay(); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms delay, got %v", got)
	}
	if !cfg.Headless.Enabled || cfg.Headless.MaxScrolls != 60 || cfg.Headless.SettleDelayMs != 400 {
		t.Fatalf("expected headless overrides: %+v", cfg.Headless)
	}
	if cfg.Static.Enabled || !cfg.Static.RespectRobots {
		t.Fatalf("expected static overrides: %+v", cfg.Static)
	}
	if cfg.Batch.Concurrency != 6 || cfg.Batch.QueueDepth != 128 {
		t.Fatalf("expected batch overrides: %+v", cfg.Batch)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected production logging at warn: %+v", cfg.Logging)
	}
	if cfg.HTTP.HostRPS != 5 || cfg.HTTP.HostBurst != 3 {
		t.Fatalf("expected host throttle overrides: %+v", cfg.HTTP)
	}
	if cfg.Privacy.AuthorKey != "pepper" || cfg.Tracing.SampleRatio != 0.25 {
		t.Fatalf("expected privacy/tracing overrides: %+v %+v", cfg.Privacy, cfg.Tracing)
	}
	if got := cfg.Timeout(); got != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RPC.MaxPages != 50 || cfg.RPC.PageSize != 200 {
		t.Fatalf("unexpected rpc defaults: %+v", cfg.RPC)
	}
	if cfg.Headless.Enabled || !cfg.Static.Enabled {
		t.Fatalf("unexpected channel defaults: headless=%v static=%v", cfg.Headless.Enabled, cfg.Static.Enabled)
	}
	if cfg.Defaults.Sort != "newest" || cfg.Defaults.Limit != 100 || cfg.Defaults.MaxLimit != 5000 {
		t.Fatalf("unexpected request defaults: %+v", cfg.Defaults)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REVIEWS_RPC_MAX_PAGES", "3")
	t.Setenv("REVIEWS_DEFAULTS_LANGUAGE", "tr")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RPC.MaxPages != 3 || cfg.Defaults.Language != "tr" {
		t.Fatalf("expected env overrides, got %+v %+v", cfg.RPC, cfg.Defaults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Defaults: DefaultsConfig{Country: "us", Language: "en", Limit: 25, Sort: "rating"}}
	got := cfg.ApplyDefaults(review.ExtractionRequest{AppID: "x"})
	if got.Country != "us" || got.Language != "en" || got.Limit != 25 || got.Sort != review.SortRating {
		t.Fatalf("defaults not applied: %+v", got)
	}
	kept := cfg.ApplyDefaults(review.ExtractionRequest{AppID: "x", Language: "fr", Limit: 5, Sort: review.SortNewest})
	if kept.Language != "fr" || kept.Limit != 5 || kept.Sort != review.SortNewest {
		t.Fatalf("explicit fields overwritten: %+v", kept)
	}
}

func TestCheckLimit(t *testing.T) {
	t.Parallel()

	cfg := Config{Defaults: DefaultsConfig{MaxLimit: 50}}
	if err := cfg.CheckLimit(review.ExtractionRequest{Limit: 50}); err != nil {
		t.Fatalf("limit at ceiling rejected: %v", err)
	}
	err := cfg.CheckLimit(review.ExtractionRequest{Limit: 1 << 62})
	if !errors.Is(err, review.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := (Config{}).CheckLimit(review.ExtractionRequest{Limit: review.MaxLimit + 1}); err == nil {
		t.Fatal("expected unset ceiling to fall back to review.MaxLimit")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		HTTP:     HTTPConfig{TimeoutSeconds: 10},
		RPC:      RPCConfig{PageSize: 200, MaxPages: 5},
		Batch:    BatchConfig{Concurrency: 1, QueueDepth: 1},
		Defaults: DefaultsConfig{Limit: 10, MaxLimit: 100, Sort: "newest"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "negative host rps", mutate: func(c *Config) { c.HTTP.HostRPS = -1 }, want: "http.host_rps"},
		{name: "invalid page size", mutate: func(c *Config) { c.RPC.PageSize = 0 }, want: "rpc.page_size"},
		{name: "invalid max pages", mutate: func(c *Config) { c.RPC.MaxPages = -1 }, want: "rpc.max_pages"},
		{name: "negative delay", mutate: func(c *Config) { c.RPC.InterPageDelayMs = -5 }, want: "rpc.inter_page_delay_ms"},
		{name: "invalid concurrency", mutate: func(c *Config) { c.Batch.Concurrency = 0 }, want: "batch.concurrency"},
		{name: "invalid queue depth", mutate: func(c *Config) { c.Batch.QueueDepth = 0 }, want: "batch.queue_depth"},
		{name: "invalid default limit", mutate: func(c *Config) { c.Defaults.Limit = 0 }, want: "defaults.limit"},
		{name: "missing max limit", mutate: func(c *Config) { c.Defaults.MaxLimit = 0 }, want: "defaults.max_limit"},
		{name: "max limit above ceiling", mutate: func(c *Config) { c.Defaults.MaxLimit = review.MaxLimit + 1 }, want: "defaults.max_limit"},
		{name: "default above max limit", mutate: func(c *Config) { c.Defaults.Limit = 101 }, want: "defaults.limit"},
		{name: "unknown sort", mutate: func(c *Config) { c.Defaults.Sort = "oldest" }, want: "defaults.sort"},
		{
			name: "headless missing max parallel",
			mutate: func(c *Config) {
				c.Headless.Enabled = true
				c.Headless.NavTimeoutSec = 10
			},
			want: "headless.max_parallel",
		},
		{
			name: "headless missing timeout",
			mutate: func(c *Config) {
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 1
			},
			want: "headless.nav_timeout_seconds",
		},
		{name: "sample ratio too high", mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 }, want: "tracing.sample_ratio"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
