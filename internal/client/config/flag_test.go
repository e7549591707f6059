package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{
			name: "short flags",
			args: []string{"-a", "http://127.0.0.1:9090", "-t", "10", "-d", "/tmp/bz", "-l", "debug"},
			expected: &Config{
				APIBaseURL: "http://127.0.0.1:9090", RequestTimeout: 10 * time.Second,
				DataDir: "/tmp/bz", LogLevel: "debug",
			},
		},
		{
			name: "long flags mixed with commands",
			args: []string{"advert", "browse", "--api=http://h:1", "--timeout", "7"},
			expected: &Config{
				APIBaseURL: "http://h:1", RequestTimeout: 7 * time.Second,
			},
		},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestDeclareFlags_MatchesKnownFlags(t *testing.T) {
	fs := pflag.NewFlagSet("root", pflag.ContinueOnError)
	DeclareFlags(fs)

	err := fs.Parse([]string{"-a", "http://h:1", "--timeout", "5", "-d", "/tmp/bz", "--log-level", "warn", "-c", "cfg.json"})
	require.NoError(t, err)
	for _, name := range []string{"api", "timeout", "data-dir", "log-level", "config"} {
		assert.True(t, fs.Changed(name), name)
	}
	for _, f := range knownFlags {
		if len(f) == 2 {
			assert.NotNil(t, fs.ShorthandLookup(f[1:]), f)
		} else {
			assert.NotNil(t, fs.Lookup(f[2:]), f)
		}
	}
}
