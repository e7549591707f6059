// Package config loads runtime configuration for the bazaar client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c, -config or --config.
//  3. BAZAAR_* environment variables (e.g. BAZAAR_API_BASE_URL).
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a, --api string        base URL of the remote API
//	-t, --timeout int       request timeout (seconds)
//	-d, --data-dir string   directory for the local cache and device key
//	-l, --log-level string  debug, info, warn or error
//
// # JSON schema
//
// Durations can be strings like "30s" or integer nanoseconds; absent keys
// keep their previous value:
//
//	{
//	  "api_base_url": "https://api.example.com",
//	  "request_timeout": "30s",
//	  "session_validity": "24h",
//	  "data_dir": "/home/me/.config/bazaar"
//	}
package config
