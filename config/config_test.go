package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
quoteflow:
  name: quoteflow
  version: 1.0.0
quote:
  stale_threshold_ms: 5000
  default_depth: 50
  request_timeout: 8s
venues:
  binance:
    enabled: true
    timeout: 3s
    depth_limit: 100
    rate_limit:
      requests_per_second: 10
      burst_size: 2
    affiliate_url: https://accounts.binance.com/register?ref=quoteflow
  kucoin:
    enabled: true
    timeout: 4s
logging:
  level: warn
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Quote.StaleThresholdMs != 5000 {
		t.Fatalf("stale threshold = %d", cfg.Quote.StaleThresholdMs)
	}
	if cfg.Quote.RequestTimeout != 8*time.Second {
		t.Fatalf("request timeout = %v", cfg.Quote.RequestTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("logging level = %q", cfg.Logging.Level)
	}

	ids := cfg.Venues.EnabledIDs()
	if len(ids) != 2 || ids[0] != "binance" || ids[1] != "kucoin" {
		t.Fatalf("enabled venues = %v", ids)
	}

	vc, ok := cfg.Venues.Get("binance")
	if !ok || vc.RateLimit.RequestsPerSecond != 10 || vc.AffiliateURL == "" {
		t.Fatalf("binance venue config = %+v", vc)
	}

	// defaults survive partial files
	if cfg.ConnectionPool.MaxIdleConns != 100 {
		t.Fatalf("connection pool default = %d", cfg.ConnectionPool.MaxIdleConns)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `
quoteflow:
  version: 1.0.0
venues:
  binance:
    enabled: true
    timeout: 3s
`},
		{"no venues", `
quoteflow:
  name: quoteflow
  version: 1.0.0
`},
		{"zero timeout", `
quoteflow:
  name: quoteflow
  version: 1.0.0
venues:
  okx:
    enabled: true
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestVenuesGetUnknown(t *testing.T) {
	var v VenuesConfig
	if _, ok := v.Get("ftx"); ok {
		t.Fatal("unknown venue should not resolve")
	}
}
