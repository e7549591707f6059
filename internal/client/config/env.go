package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name declared in Config tags.
const EnvPrefix = "BAZAAR_"

// parseEnv overlays Config with BAZAAR_* environment variables. Unset
// variables leave the current value untouched.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
