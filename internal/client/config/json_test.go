package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_base_url":     "https://www.example:9000",
		"request_timeout":  "10s",
		"session_validity": "1h",
		"retry_attempts":   5,
		"seed_sample_data": false,
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "https://www.example:9000", cfg.APIBaseURL)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.Equal(t, time.Hour, cfg.SessionValidity)
		assert.EqualValues(t, 5, cfg.RetryAttempts)
		assert.False(t, cfg.SeedSampleData)
		assert.Equal(t, 15*time.Second, cfg.LinkTimeout, "absent keys keep defaults")
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		cfg := &Config{
			APIBaseURL:     "http://defaults:1234",
			RequestTimeout: 42 * time.Second,
		}
		require.NoError(t, parseJson(cfg, []string{"whoami"}))

		assert.Equal(t, "http://defaults:1234", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Error(t, parseJson(cfg, []string{"-c", bad}))
	})

	t.Run("missing file → error", func(t *testing.T) {
		cfg := &Config{}
		require.Error(t, parseJson(cfg, []string{"-c", filepath.Join(dir, "absent.json")}))
	})
}
