// Package config loads btc-metrics settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrMissingURL      = errors.New("url must not be empty")
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Collector CollectorConfig `yaml:"collector"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is requests per second allowed per client on /api; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// HistoryLimit is the default row count of GET /api/metrics.
	HistoryLimit int `yaml:"history_limit"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CollectorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	EsploraURL   string        `yaml:"esplora_url"`
	CoinGeckoURL string        `yaml:"coingecko_url"`
	// PriceRate caps price lookups per second to stay under the public API quota.
	PriceRate float64 `yaml:"price_rate"`
}

type DashboardConfig struct {
	APIURL       string        `yaml:"api_url"`
	Interval     time.Duration `yaml:"interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type LogConfig struct {
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			RateLimit:    20,
			RateBurst:    40,
			HistoryLimit: 50,
		},
		Database: DatabaseConfig{
			Path: "metrics.db",
		},
		Collector: CollectorConfig{
			Enabled:      true,
			Interval:     20 * time.Second,
			Timeout:      10 * time.Second,
			EsploraURL:   "https://blockstream.info/api",
			CoinGeckoURL: "https://api.coingecko.com/api/v3",
			PriceRate:    0.5,
		},
		Dashboard: DashboardConfig{
			APIURL:       "http://localhost:8080/api/metrics?limit=10",
			Interval:     10 * time.Second,
			FetchTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Dir:   "log",
			Level: "info",
		},
	}
}

// Load reads path (a missing file yields the defaults) and then applies
// BTCM_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = GetEnvOrDefault("BTCM_ADDR", c.Server.Addr)
	c.Server.RateLimit = GetEnvAsFloat("BTCM_RATE_LIMIT", c.Server.RateLimit)
	c.Database.Path = GetEnvOrDefault("BTCM_DB_PATH", c.Database.Path)
	c.Collector.Interval = GetEnvAsDuration("BTCM_COLLECT_INTERVAL", c.Collector.Interval)
	c.Collector.EsploraURL = GetEnvOrDefault("BTCM_ESPLORA_URL", c.Collector.EsploraURL)
	c.Collector.CoinGeckoURL = GetEnvOrDefault("BTCM_COINGECKO_URL", c.Collector.CoinGeckoURL)
	c.Dashboard.APIURL = GetEnvOrDefault("BTCM_API_URL", c.Dashboard.APIURL)
	c.Dashboard.Interval = GetEnvAsDuration("BTCM_POLL_INTERVAL", c.Dashboard.Interval)
	c.Log.Level = GetEnvOrDefault("BTCM_LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	if c.Collector.Enabled {
		if c.Collector.Interval <= 0 {
			return fmt.Errorf("collector: %w", ErrInvalidInterval)
		}
		if c.Collector.EsploraURL == "" || c.Collector.CoinGeckoURL == "" {
			return fmt.Errorf("collector: %w", ErrMissingURL)
		}
	}
	if c.Dashboard.Interval <= 0 {
		return fmt.Errorf("dashboard: %w", ErrInvalidInterval)
	}
	if c.Dashboard.APIURL == "" {
		return fmt.Errorf("dashboard: %w", ErrMissingURL)
	}
	if c.Database.Path == "" {
		return errors.New("database: path must not be empty")
	}
	return nil
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
