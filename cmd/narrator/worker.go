package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/mq"
	"github.com/jonathan/scene-narrator/internal/pipeline"
	"github.com/jonathan/scene-narrator/internal/telemetry"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process submitted jobs from RabbitMQ",
	Long: `Consumes the submission queue one message at a time and runs the pipeline for each job.
Messages are acknowledged when the job completes; failed jobs are dead-lettered, not retried.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var (
	workerQueue       string
	workerMetricsAddr string
)

func init() {
	workerCmd.Flags().StringVar(&workerQueue, "queue", "", "Queue name (defaults to RABBITMQ_QUEUE or videos.submitted)")
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", "", "Serve /metrics on this address (disabled when empty)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("queue") {
		cfg.Queue = workerQueue
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	reg := newRegistry()
	orchestrator, cleanup, err := newOrchestrator(ctx, cfg, logger, reg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	conn, topology, err := newQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	if workerMetricsAddr != "" {
		metricsSrv := serveMetrics(workerMetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	consumer := mq.NewConsumer(conn, telemetry.WithComponent(logger, "worker"), mq.ConsumerConfig{
		Queue:   topology.Queue,
		Handler: jobHandler(orchestrator),
	})

	logger.Info("worker started", "queue", topology.Queue)
	err = consumer.Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("worker stopped")
		return nil
	}
	return err
}

// jobHandler runs the pipeline for each submitted video
func jobHandler(orchestrator *pipeline.Orchestrator) mq.Handler {
	return func(ctx context.Context, d *mq.Delivery) error {
		if d.Message.Type != mq.MessageTypeVideoSubmitted {
			return fmt.Errorf("unexpected message type %q", d.Message.Type)
		}
		payload, err := mq.ParsePayload[mq.VideoSubmittedPayload](&d.Message)
		if err != nil {
			return err
		}
		return orchestrator.ProcessJob(ctx, payload.VideoID)
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
