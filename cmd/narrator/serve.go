package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/mq"
	"github.com/jonathan/scene-narrator/internal/server"
	"github.com/jonathan/scene-narrator/internal/server/ratelimit"
	"github.com/jonathan/scene-narrator/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the job status API server",
	Long: `Start an HTTP server exposing job status, error logs and a status event stream behind
Bearer JWT authentication, plus /health and /metrics. When RABBITMQ_URL is set, jobs can also
be submitted through the API.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (defaults to LISTEN_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = serveAddr
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	serverCfg := server.Config{
		Addr:      cfg.ListenAddr,
		Store:     database,
		JWT:       jwtCfg,
		Gatherer:  newRegistry(),
		RateLimit: ratelimit.ConfigFromEnv(os.Getenv),
		Location:  loc,
		Logger:    logger,
	}

	if cfg.RabbitMQURL != "" {
		conn, _, err := newQueue(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck
		serverCfg.Submitter = mq.NewPublisher(conn, telemetry.WithComponent(logger, "mq"))
	}

	srv, err := server.New(serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
