package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

// Config holds runtime settings for the bazaar client.
//
// Fields:
//   - APIBaseURL: scheme://host[:port] of the remote REST API.
//   - RequestTimeout: per-request timeout applied to every remote call.
//   - LinkTimeout: budget for finishing a profile relink after the caller
//     has gone away.
//   - SessionValidity: how long a saved token is considered valid.
//   - RetryAttempts / RetryBaseDelay: backoff for idempotent reads.
//   - ProxyBypassHeader / ProxyBypassValue: header sent for the tunnel proxy.
//   - DataDir: where the local cache database and device key live.
//   - LogLevel: debug, info, warn or error.
//   - SeedSampleData: seed the cache with sample data on first run.
type Config struct {
	APIBaseURL        string        `env:"API_BASE_URL"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	LinkTimeout       time.Duration `env:"LINK_TIMEOUT"`
	SessionValidity   time.Duration `env:"SESSION_VALIDITY"`
	RetryAttempts     uint64        `env:"RETRY_ATTEMPTS"`
	RetryBaseDelay    time.Duration `env:"RETRY_BASE_DELAY"`
	ProxyBypassHeader string        `env:"PROXY_BYPASS_HEADER"`
	ProxyBypassValue  string        `env:"PROXY_BYPASS_VALUE"`
	DataDir           string        `env:"DATA_DIR"`
	LogLevel          string        `env:"LOG_LEVEL"`
	SeedSampleData    bool          `env:"SEED_SAMPLE_DATA"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:1337"
	c.RequestTimeout = 30 * time.Second
	c.LinkTimeout = 15 * time.Second
	c.SessionValidity = 24 * time.Hour
	c.RetryAttempts = 3
	c.RetryBaseDelay = 200 * time.Millisecond
	c.ProxyBypassHeader = common.DefaultProxyBypassHeader
	c.ProxyBypassValue = common.DefaultProxyBypassValue
	c.DataDir = defaultDataDir()
	c.LogLevel = "info"
	c.SeedSampleData = true
}

// DatabasePath is the SQLite file of the local cache mirror.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// DeviceKeyPath is the per-device secret used to seal the stored token.
func (c *Config) DeviceKeyPath() string {
	return filepath.Join(c.DataDir, "device.key")
}

// Validate reports settings that would make the client unusable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SessionValidity <= 0 {
		return fmt.Errorf("session validity must be positive, got %s", c.SessionValidity)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir is empty")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if -c/-config is given), BAZAAR_* environment variables and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bazaar")
	}
	return ".bazaar"
}
