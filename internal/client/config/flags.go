package config

import (
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/bazaar/internal/flagx"
)

// knownFlags are the only arguments parseFlags looks at; everything else on
// the command line belongs to the CLI command tree.
var knownFlags = []string{"-a", "-t", "-d", "-l", "--api", "--timeout", "--data-dir", "--log-level"}

type flagValues struct {
	config   string
	api      string
	timeout  int
	dataDir  string
	logLevel string
}

func declareFlags(fs *pflag.FlagSet, v *flagValues) {
	fs.StringVarP(&v.config, "config", "c", v.config, "JSON config file")
	fs.StringVarP(&v.api, "api", "a", v.api, "base URL of the remote API")
	fs.IntVarP(&v.timeout, "timeout", "t", v.timeout, "request timeout in seconds")
	fs.StringVarP(&v.dataDir, "data-dir", "d", v.dataDir, "directory for the local cache and device key")
	fs.StringVarP(&v.logLevel, "log-level", "l", v.logLevel, "debug, info, warn or error")
}

// DeclareFlags adds the configuration flags to fs so a command tree that
// shares the command line with LoadConfig accepts them.
func DeclareFlags(fs *pflag.FlagSet) {
	declareFlags(fs, &flagValues{})
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a, --api string        base URL of the remote API
//	-t, --timeout int       request timeout (in seconds)
//	-d, --data-dir string   directory for the local cache and device key
//	-l, --log-level string  debug, info, warn or error
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, knownFlags)

	v := flagValues{
		api:      cfg.APIBaseURL,
		timeout:  int(cfg.RequestTimeout.Seconds()),
		dataDir:  cfg.DataDir,
		logLevel: cfg.LogLevel,
	}
	fs := pflag.NewFlagSet("bazaar", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	declareFlags(fs, &v)

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	cfg.APIBaseURL = v.api
	cfg.RequestTimeout = time.Duration(v.timeout) * time.Second
	cfg.DataDir = v.dataDir
	cfg.LogLevel = v.logLevel
	return nil
}
