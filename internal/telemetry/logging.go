// Package telemetry provides structured logging and Prometheus metrics for the pipeline.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads the level from LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Defaults to INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds the process logger writing to w and installs it as the slog default.
// LOG_FORMAT selects the handler: "text" for humans, anything else for JSON.
func SetupLogger(w io.Writer) *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithJobID returns a logger annotated with the job's video_id
func WithJobID(logger *slog.Logger, videoID string) *slog.Logger {
	return logger.With("video_id", videoID)
}

// WithComponent returns a logger annotated with the emitting component
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}
