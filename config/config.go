package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Quoteflow      QuoteflowConfig      `yaml:"quoteflow"`
	Quote          QuoteConfig          `yaml:"quote"`
	Venues         VenuesConfig         `yaml:"venues"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Logging        LoggingConfig        `yaml:"logging"`
}

type QuoteflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type QuoteConfig struct {
	StaleThresholdMs int           `yaml:"stale_threshold_ms"`
	DefaultDepth     int           `yaml:"default_depth"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

type VenuesConfig struct {
	Binance VenueConfig `yaml:"binance"`
	Bybit   VenueConfig `yaml:"bybit"`
	Kucoin  VenueConfig `yaml:"kucoin"`
	Okx     VenueConfig `yaml:"okx"`
}

// Get returns the configuration for a venue id and whether the id is known.
func (v *VenuesConfig) Get(venueID string) (VenueConfig, bool) {
	switch strings.ToLower(venueID) {
	case "binance":
		return v.Binance, true
	case "bybit":
		return v.Bybit, true
	case "kucoin":
		return v.Kucoin, true
	case "okx":
		return v.Okx, true
	default:
		return VenueConfig{}, false
	}
}

// EnabledIDs lists the enabled venue ids in a fixed order.
func (v *VenuesConfig) EnabledIDs() []string {
	ids := make([]string, 0, 4)
	for _, id := range []string{"binance", "bybit", "kucoin", "okx"} {
		if cfg, _ := v.Get(id); cfg.Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

type VenueConfig struct {
	Enabled      bool            `yaml:"enabled"`
	BaseURL      string          `yaml:"base_url"`
	Timeout      time.Duration   `yaml:"timeout"`
	DepthLimit   int             `yaml:"depth_limit"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	AffiliateURL string          `yaml:"affiliate_url"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Region        string `yaml:"region"`
	Namespace     string `yaml:"namespace"`
	DashboardName string `yaml:"dashboard_name"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override metrics settings from environment variables if available
	if config.Metrics.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.Region = strings.TrimSpace(v)
		}
	}

	applyEnvironmentDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Quote: QuoteConfig{
			StaleThresholdMs: 5000,
			DefaultDepth:     100,
			RequestTimeout:   10 * time.Second,
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 100,
			IdleConnTimeout: 90 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "QuoteFlow",
		},
	}
}

// applyEnvironmentDefaults fills logging defaults that depend on APP_ENV.
// Development defaults to verbose text logs, production-like environments to
// JSON at info level.
func applyEnvironmentDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		if IsProductionLike(AppEnvironment()) {
			cfg.Logging.Level = "info"
		} else {
			cfg.Logging.Level = "debug"
		}
	}
	if cfg.Logging.Format == "" {
		if IsProductionLike(AppEnvironment()) {
			cfg.Logging.Format = "json"
		} else {
			cfg.Logging.Format = "text"
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Quoteflow.Name == "" {
		return fmt.Errorf("quoteflow.name is required")
	}

	if cfg.Quoteflow.Version == "" {
		return fmt.Errorf("quoteflow.version is required")
	}

	if cfg.Quote.StaleThresholdMs <= 0 {
		return fmt.Errorf("quote.stale_threshold_ms must be greater than 0")
	}
	if cfg.Quote.DefaultDepth <= 0 {
		return fmt.Errorf("quote.default_depth must be greater than 0")
	}
	if cfg.Quote.RequestTimeout <= 0 {
		return fmt.Errorf("quote.request_timeout must be greater than 0")
	}

	if len(cfg.Venues.EnabledIDs()) == 0 {
		return fmt.Errorf("at least one venue must be enabled")
	}

	for _, id := range cfg.Venues.EnabledIDs() {
		vc, _ := cfg.Venues.Get(id)
		if vc.Timeout <= 0 {
			return fmt.Errorf("venues.%s.timeout must be greater than 0", id)
		}
		if vc.DepthLimit < 0 {
			return fmt.Errorf("venues.%s.depth_limit must not be negative", id)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}

	return nil
}
