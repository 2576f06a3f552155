package harvest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/sigharv/harvest/internal/fetch"
)

// Config configures the harvester service.
type Config struct {
	// BaseURL is the register origin, e.g. https://call.sofia.bg.
	BaseURL string `yaml:"base_url"`

	// StartID and EndID bound the harvested id range, inclusive.
	StartID int64 `yaml:"start_id"`
	EndID   int64 `yaml:"end_id"`

	// Concurrency caps in-flight detail fetches. Default: 4.
	Concurrency int `yaml:"concurrency"`

	// BatchSize is how many ids run before the next batch starts.
	// Default: 50.
	BatchSize int `yaml:"batch_size"`

	// DelayMs is the per-item politeness pause after each fetch.
	// Default: 500.
	DelayMs int64 `yaml:"delay_ms"`

	// Resume starts from the stored watermark instead of StartID.
	Resume bool `yaml:"resume"`

	// SkipExisting drops ids already present in the records table from the
	// plan up front. Even when false, stored ids are skipped per item
	// unless Force is set.
	SkipExisting bool `yaml:"skip_existing"`

	// Force re-fetches ids that are already stored, refreshing them via
	// the merge upsert.
	Force bool `yaml:"force"`

	// KeepRaw stores a markdown rendering of each page alongside the
	// extracted fields.
	KeepRaw bool `yaml:"keep_raw"`

	// FetchHistory enables the best-effort status/answer history fetches.
	FetchHistory bool `yaml:"fetch_history"`

	// RetryAttempts and RetryBaseDelayMs shape the linear backoff on
	// transient fetch failures. Defaults: 3 attempts, 2000 ms.
	RetryAttempts    int   `yaml:"retry_attempts"`
	RetryBaseDelayMs int64 `yaml:"retry_base_delay_ms"`

	// TimeoutSec is the HTTP client timeout. Default: 30.
	TimeoutSec int `yaml:"timeout_sec"`

	// UserAgent sent with every request.
	UserAgent string `yaml:"user_agent"`

	// Fetch carries the assembled HTTP settings. Populated from the fields
	// above by defaults(); set directly only in tests.
	Fetch fetch.Config `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.DelayMs <= 0 {
		c.DelayMs = 500
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelayMs <= 0 {
		c.RetryBaseDelayMs = 2000
	}
	if c.BaseURL != "" {
		c.Fetch.BaseURL = c.BaseURL
	}
	if c.TimeoutSec > 0 {
		c.Fetch.Timeout = time.Duration(c.TimeoutSec) * time.Second
	}
	if c.UserAgent != "" {
		c.Fetch.UserAgent = c.UserAgent
	}
}

func (c *Config) delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func (c *Config) retryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Config) validate() error {
	if c.BaseURL == "" && c.Fetch.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	}
	if c.StartID < 1 {
		return fmt.Errorf("%w: start_id must be >= 1", ErrInvalidConfig)
	}
	if c.EndID < c.StartID {
		return fmt.Errorf("%w: end_id must be >= start_id", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
