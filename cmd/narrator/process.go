package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/observability"
	"github.com/jonathan/scene-narrator/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Run every pipeline step for one job",
	Long: `Runs preprocess, transcription, scene planning, clip extraction and narration (in parallel),
voiceover and assembly for the job, stopping at the first failure. Steps that already completed
are rejected by the guard, so rerunning a finished job fails fast.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var (
	processVoice   string
	processVerbose bool
)

func init() {
	processCmd.Flags().StringVar(&processVoice, "voice", "", "Narration voice (defaults to NARRATION_VOICE or alloy)")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print step results")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	videoID, err := parseJobID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("voice") {
		cfg.Voice = processVoice
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	out := cmd.OutOrStdout()
	orchestrator, cleanup, err := newOrchestrator(ctx, cfg, logger, prometheus.NewRegistry(), progressPrinter(out, processVerbose))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orchestrator.ProcessJob(ctx, videoID); err != nil {
		return fmt.Errorf("job %s failed: %w", videoID, err)
	}
	_, _ = fmt.Fprintf(out, "Job %s completed\n", videoID)
	return nil
}

// progressPrinter reports each finished step on w
func progressPrinter(w io.Writer, verbose bool) pipeline.ProgressCallback {
	printer := observability.NewPrinter(w)
	return func(event pipeline.ProgressEvent) {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", event.Category, event.Step, event.Message)
		if verbose {
			printer.PrintEvent(event)
		}
	}
}
