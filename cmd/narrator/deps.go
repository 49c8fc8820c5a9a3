package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/scene-narrator/internal/config"
	"github.com/jonathan/scene-narrator/internal/llm"
	"github.com/jonathan/scene-narrator/internal/media"
	"github.com/jonathan/scene-narrator/internal/mq"
	"github.com/jonathan/scene-narrator/internal/pipeline"
	"github.com/jonathan/scene-narrator/internal/speech"
	"github.com/jonathan/scene-narrator/internal/telemetry"
	"github.com/jonathan/scene-narrator/internal/transcription"
)

// newLogger installs the process logger
func newLogger() *slog.Logger {
	return telemetry.SetupLogger(os.Stderr)
}

// newOrchestrator wires the external collaborators into an orchestrator. The returned
// cleanup releases the LLM client.
func newOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, onProgress pipeline.ProgressCallback) (*pipeline.Orchestrator, func(), error) {
	if err := cfg.RequirePipeline(); err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	transcriber, err := transcription.NewClient(cfg.RevAccessToken,
		transcription.WithPollInterval(cfg.PollInterval()),
		transcription.WithLogger(telemetry.WithComponent(logger, "transcription")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transcription client: %w", err)
	}

	speechClient, err := speech.NewClient(cfg.OpenAIKey, speech.WithOrganization(cfg.OpenAIOrganization))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	generator, err := llm.NewClient(ctx, llm.DefaultConfig().WithModel(cfg.GeminiModel), cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	cleanup := func() {
		if err := generator.Close(); err != nil {
			logger.Warn("closing LLM client", "error", err)
		}
	}

	var metrics pipeline.Metrics
	if reg != nil {
		metrics = telemetry.NewStepMetrics(reg)
	}

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Config{
		Opener: pipeline.DatabaseOpener(cfg.DatabaseURL),
		Collaborators: pipeline.Collaborators{
			Media:       media.NewTransformer(media.WithBinaries(cfg.FFmpegPath, cfg.FFprobePath)),
			Transcriber: transcriber,
			Generator:   generator,
			Speech:      speechClient,
		},
		Workspace:  pipeline.Workspace{BaseDir: cfg.BaseDir},
		Voice:      cfg.Voice,
		Logger:     logger,
		Location:   loc,
		Metrics:    metrics,
		OnProgress: onProgress,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Debug("orchestrator ready", "model", generator.Model(), "base_dir", cfg.BaseDir, "voice", cfg.Voice)
	return orchestrator, cleanup, nil
}

// newQueue connects to RabbitMQ and declares the job topology
func newQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mq.Connection, mq.Topology, error) {
	topology := mq.Topology{Queue: cfg.Queue}
	if err := cfg.RequireQueue(); err != nil {
		return nil, topology, err
	}

	conn, err := mq.NewConnection(cfg.RabbitMQURL, telemetry.WithComponent(logger, "mq"))
	if err != nil {
		return nil, topology, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	if err := topology.Setup(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, topology, fmt.Errorf("failed to declare queues: %w", err)
	}
	return conn, topology, nil
}
