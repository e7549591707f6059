package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/flagx"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from zero so a partial file only overrides
// what it names.
type JsonConfig struct {
	APIBaseURL        *string         `json:"api_base_url"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	LinkTimeout       *timex.Duration `json:"link_timeout"`
	SessionValidity   *timex.Duration `json:"session_validity"`
	RetryAttempts     *uint64         `json:"retry_attempts"`
	RetryBaseDelay    *timex.Duration `json:"retry_base_delay"`
	ProxyBypassHeader *string         `json:"proxy_bypass_header"`
	ProxyBypassValue  *string         `json:"proxy_bypass_value"`
	DataDir           *string         `json:"data_dir"`
	LogLevel          *string         `json:"log_level"`
	SeedSampleData    *bool           `json:"seed_sample_data"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config in args. Without such a flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.LinkTimeout, jc.LinkTimeout)
	setDuration(&cfg.SessionValidity, jc.SessionValidity)
	if jc.RetryAttempts != nil {
		cfg.RetryAttempts = *jc.RetryAttempts
	}
	setDuration(&cfg.RetryBaseDelay, jc.RetryBaseDelay)
	setString(&cfg.ProxyBypassHeader, jc.ProxyBypassHeader)
	setString(&cfg.ProxyBypassValue, jc.ProxyBypassValue)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.SeedSampleData != nil {
		cfg.SeedSampleData = *jc.SeedSampleData
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
