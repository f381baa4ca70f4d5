package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/observability"
)

// resolveConfig layers flag values over the --config file and fills secrets
// from the environment. Flags win; the file fills what flags left empty.
func resolveConfig(flags config.Config, out io.Writer) (config.Config, error) {
	var fileCfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		fileCfg = *loaded
		if verbose {
			_, _ = fmt.Fprintf(out, "Loaded config from: %s\n", configPath)
		}
	}

	cfg := flags.MergeWithDefaults(fileCfg)
	cfg.Verbose = cfg.Verbose || verbose
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger logs to stderr so stdout stays usable for command output.
func newLogger(cfg config.Config, stderr io.Writer) *logrus.Logger {
	return observability.NewLogger(cfg.Verbose, stderr)
}
