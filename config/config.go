// Package config handles webtextd configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/webtext/proxy"
)

// Config is the top-level webtextd configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Audit      AuditConfig      `yaml:"audit"`
	Proxies    []string         `yaml:"proxies"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          bool          `yaml:"stealth"`
}

// ExtractionConfig tunes the per-request pipeline.
type ExtractionConfig struct {
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	WaitShare        float64       `yaml:"wait_share"`
	SubstantialChars int           `yaml:"substantial_chars"`
	FallbackFloor    int           `yaml:"fallback_floor"`
	SPAThreshold     int           `yaml:"spa_threshold"`
	UltraThreshold   int           `yaml:"ultra_threshold"`
}

// AuditConfig controls the SQLite extraction event log.
type AuditConfig struct {
	Path          string `yaml:"path"`
	BufferSize    int    `yaml:"buffer_size"`
	RetentionDays int    `yaml:"retention_days"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.finish()
	return cfg
}

func (c *Config) finish() error {
	c.applyDefaults()
	normalized, err := proxy.Normalize(c.Proxies)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Proxies = normalized
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		// Extraction requests can legitimately run for minutes.
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.ResourceBlocking == nil {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}

	if c.Extraction.RequestTimeout <= 0 {
		c.Extraction.RequestTimeout = 90 * time.Second
	}
	if c.Extraction.NavigateTimeout <= 0 {
		c.Extraction.NavigateTimeout = 30 * time.Second
	}
	if c.Extraction.WaitShare <= 0 || c.Extraction.WaitShare >= 1 {
		c.Extraction.WaitShare = 0.6
	}
	if c.Extraction.SubstantialChars <= 0 {
		c.Extraction.SubstantialChars = 500
	}
	if c.Extraction.FallbackFloor <= 0 {
		c.Extraction.FallbackFloor = 50
	}
	if c.Extraction.SPAThreshold <= 0 {
		c.Extraction.SPAThreshold = 2
	}
	if c.Extraction.UltraThreshold <= 0 {
		c.Extraction.UltraThreshold = 4
	}

	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = 1000
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 30
	}
}
