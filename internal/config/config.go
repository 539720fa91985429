package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all foiadir configuration.
type Config struct {
	// Upstream registry API
	Registry RegistryConfig `yaml:"registry"`

	// Browser scraping of unit pages
	Scrape ScrapeConfig `yaml:"scrape"`

	// Canonical directory storage
	Directory DirectoryConfig `yaml:"directory"`

	// Default requester identity for composed submissions
	Requester RequesterConfig `yaml:"requester"`

	// Submission composition
	Compose ComposeConfig `yaml:"compose"`

	// Portal form handling
	Portal PortalConfig `yaml:"portal"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// RegistryConfig configures the agency-component registry client.
type RegistryConfig struct {
	BaseURL   string  `yaml:"base_url"`
	APIKey    string  `yaml:"api_key"`
	PageSize  int     `yaml:"page_size"`
	MaxPages  int     `yaml:"max_pages"`  // hard ceiling per enumeration
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst"`
	Timeout   string  `yaml:"timeout"`
	UserAgent string  `yaml:"user_agent"`
}

// ScrapeConfig configures the browser worker pool.
type ScrapeConfig struct {
	Concurrency       int    `yaml:"concurrency"`
	UnitURLTemplate   string `yaml:"unit_url_template"` // %s receives the unit id
	RevealLabel       string `yaml:"reveal_label"`      // text of the contact-info tab, if any
	SettleWait        string `yaml:"settle_wait"`       // pause after navigation/reveal
	TaskTimeout       string `yaml:"task_timeout"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	Headless          bool   `yaml:"headless"`
	UserAgent         string `yaml:"user_agent"`
}

// DirectoryConfig configures the canonical directory store.
type DirectoryConfig struct {
	Path     string `yaml:"path"`
	CacheTTL string `yaml:"cache_ttl"`
	Watch    bool   `yaml:"watch"` // invalidate the cache when the file changes on disk
}

// RequesterConfig holds the identity stamped into composed submissions.
// Per-call requester details override these defaults.
type RequesterConfig struct {
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	PostalAddress string `yaml:"postal_address"`
}

// ComposeConfig configures submission composition.
type ComposeConfig struct {
	DefaultFeeLimitUSD int    `yaml:"default_fee_limit_usd"`
	DefaultFeeCategory string `yaml:"default_fee_category"`
}

// PortalConfig configures portal manifests.
type PortalConfig struct {
	// Unit ids whose portals demand the extended field set
	// (jurisdiction, subject type, perjury attestation).
	ExtendedUnits []string `yaml:"extended_units"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			BaseURL:   "https://api.foia.gov/api",
			PageSize:  50,
			MaxPages:  40,
			RateLimit: 1.0,
			Burst:     1,
			Timeout:   "30s",
			UserAgent: "foiadir/1.0",
		},

		Scrape: ScrapeConfig{
			Concurrency:       4,
			UnitURLTemplate:   "https://www.foia.gov/agency-search.html?id=%s&type=component",
			RevealLabel:       "Contact",
			SettleWait:        "1500ms",
			TaskTimeout:       "45s",
			NavigationTimeout: "30s",
			Headless:          true,
			UserAgent:         "foiadir/1.0",
		},

		Directory: DirectoryConfig{
			Path:     "data/directory.json",
			CacheTTL: "15m",
			Watch:    false,
		},

		Compose: ComposeConfig{
			DefaultFeeLimitUSD: 25,
			DefaultFeeCategory: "other",
		},

		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("FOIA_API_KEY"); key != "" {
		c.Registry.APIKey = key
	}
	if url := os.Getenv("FOIA_API_URL"); url != "" {
		c.Registry.BaseURL = url
	}
	if path := os.Getenv("FOIADIR_DIRECTORY"); path != "" {
		c.Directory.Path = path
	}
	if addr := os.Getenv("FOIADIR_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetRegistryTimeout returns the per-request registry timeout as a duration.
func (c *Config) GetRegistryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Registry.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetTaskTimeout returns the per-unit scrape timeout as a duration.
func (c *Config) GetTaskTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scrape.TaskTimeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// GetNavigationTimeout returns the page navigation timeout as a duration.
func (c *Config) GetNavigationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scrape.NavigationTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetSettleWait returns the post-navigation settle interval as a duration.
func (c *Config) GetSettleWait() time.Duration {
	d, err := time.ParseDuration(c.Scrape.SettleWait)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// GetCacheTTL returns the directory cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Directory.CacheTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetShutdownTimeout returns the HTTP server shutdown grace period.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Registry.PageSize <= 0 {
		return fmt.Errorf("registry page_size must be positive, got %d", c.Registry.PageSize)
	}
	if c.Registry.MaxPages <= 0 {
		return fmt.Errorf("registry max_pages must be positive, got %d", c.Registry.MaxPages)
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape concurrency must be positive, got %d", c.Scrape.Concurrency)
	}
	if c.Directory.Path == "" {
		return fmt.Errorf("directory path not configured")
	}
	return nil
}

// ValidateForSync validates settings the acquisition pipeline depends on.
func (c *Config) ValidateForSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Registry.APIKey == "" {
		return fmt.Errorf("registry API key not configured (set FOIA_API_KEY or registry.api_key)")
	}
	return nil
}
