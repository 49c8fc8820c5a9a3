package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/db"
)

var registerCmd = &cobra.Command{
	Use:   "register <video-file>",
	Short: "Register a source video and print its job id",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var registerJobID string

func init() {
	registerCmd.Flags().StringVar(&registerJobID, "id", "", "Use this job id instead of generating one")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	videoFile, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(videoFile); err != nil {
		return fmt.Errorf("video file not found: %w", err)
	}

	videoID := uuid.New()
	if registerJobID != "" {
		if videoID, err = parseJobID(registerJobID); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.CreateVideo(ctx, videoID, videoFile); err != nil {
		return fmt.Errorf("failed to register video: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), videoID)
	return nil
}
