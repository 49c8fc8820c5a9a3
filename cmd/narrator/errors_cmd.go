package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
)

var errorsCmd = &cobra.Command{
	Use:   "errors <job-id>",
	Short: "List the error log of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runErrors,
}

var (
	errorsStep string
	errorsFull bool
)

func init() {
	errorsCmd.Flags().StringVar(&errorsStep, "step", "", "Only show errors of this step")
	errorsCmd.Flags().BoolVar(&errorsFull, "full", false, "Print complete error logs including stack traces")
	rootCmd.AddCommand(errorsCmd)
}

func runErrors(cmd *cobra.Command, args []string) error {
	videoID, err := parseJobID(args[0])
	if err != nil {
		return err
	}
	if _, ok := steps.StepRegistry[errorsStep]; errorsStep != "" && !ok {
		return fmt.Errorf("unknown step %q (valid: %s)", errorsStep, strings.Join(steps.Order(), ", "))
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	entries, err := database.ListErrors(ctx, videoID)
	if err != nil {
		return err
	}
	writeErrors(cmd.OutOrStdout(), entries, errorsStep, errorsFull, loc)
	return nil
}

// writeErrors prints entries, optionally only those of step. Without full only the first
// line of each log is shown.
func writeErrors(w io.Writer, entries []db.PipelineError, step string, full bool, loc *time.Location) {
	shown := 0
	for _, e := range entries {
		if step != "" && e.StepName != step {
			continue
		}
		shown++
		logs := e.ErrorLogs
		if !full {
			logs, _, _ = strings.Cut(logs, "\n")
		}
		_, _ = fmt.Fprintf(w, "%s  %-20s %s\n", e.ErrorTimestamp.In(loc).Format(time.RFC3339), e.StepName, logs)
	}
	if shown == 0 {
		_, _ = fmt.Fprintln(w, "No errors recorded")
	}
}
