// Package main provides the entry point for the scene narrator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "narrator",
	Short: "Scene narrator pipeline",
	Long: `Scene narrator turns a screen recording into a narrated video: it transcribes the audio,
plans scenes with an LLM, synthesizes narration, and assembles the result. Each step is tracked
in PostgreSQL so a job can be inspected and retried.

Configuration is read from the environment (and .env), optionally from a JSON file given with
--config; command-line flags override both.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.configPath, "config", "", "Path to config.json file (values can be overridden by flags)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.baseDir, "base-dir", "", "Root directory for generated media (defaults to BASE_DIR)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.timezone, "timezone", "", "Time zone for recorded timestamps (defaults to TIMEZONE or UTC)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
