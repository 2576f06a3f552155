package harvest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WHAT: YAML config loads and defaults fill the gaps.
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
base_url: https://call.example.org
start_id: 100
end_id: 200
concurrency: 8
delay_ms: 250
timeout_sec: 10
keep_raw: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.defaults()

	if cfg.BaseURL != "https://call.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.DelayMs != 250 {
		t.Errorf("DelayMs = %d", cfg.DelayMs)
	}
	if cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("Fetch.Timeout = %v", cfg.Fetch.Timeout)
	}
	if !cfg.KeepRaw {
		t.Error("KeepRaw = false")
	}
	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize default = %d, want 50", cfg.BatchSize)
	}
	if cfg.Fetch.BaseURL != cfg.BaseURL {
		t.Errorf("Fetch.BaseURL = %q, want propagated", cfg.Fetch.BaseURL)
	}
}

// WHAT: validation rejects a missing base URL and inverted id bounds.
func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing base_url", Config{StartID: 1, EndID: 2}},
		{"zero start", Config{BaseURL: "http://x", StartID: 0, EndID: 2}},
		{"inverted bounds", Config{BaseURL: "http://x", StartID: 5, EndID: 4}},
	}
	for _, tc := range cases {
		tc.cfg.defaults()
		if err := tc.cfg.validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", tc.name, err)
		}
	}
}
