package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/mq"
)

var submitCmd = &cobra.Command{
	Use:   "submit <job-id>",
	Short: "Queue a job for the worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

var submitQueue string

func init() {
	submitCmd.Flags().StringVar(&submitQueue, "queue", "", "Queue name (defaults to RABBITMQ_QUEUE or videos.submitted)")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	videoID, err := parseJobID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("queue") {
		cfg.Queue = submitQueue
	}

	ctx := cmd.Context()
	logger := newLogger()
	conn, _, err := newQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	if err := mq.NewPublisher(conn, logger).PublishVideoSubmitted(ctx, videoID); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted\n", videoID)
	return nil
}
