package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/config"
)

var rootOpts struct {
	configPath  string
	databaseURL string
	baseDir     string
	timezone    string
}

// loadConfig resolves the configuration for cmd: flags over environment over file over defaults.
// Only flags the user set explicitly override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootOpts.configPath, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = rootOpts.databaseURL
	}
	if flags.Changed("base-dir") {
		cfg.BaseDir = rootOpts.baseDir
	}
	if flags.Changed("timezone") {
		cfg.Timezone = rootOpts.timezone
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseJobID parses the job id argument
func parseJobID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q: %w", arg, err)
	}
	return id, nil
}
