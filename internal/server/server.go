// Package server provides the HTTP API for inspecting and submitting narration jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/scene-narrator/internal/config"
	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/server/middleware"
	"github.com/jonathan/scene-narrator/internal/server/ratelimit"
)

// StatusReader is the read side of the status store used by the API
type StatusReader interface {
	FetchStatus(ctx context.Context, videoID uuid.UUID) (*db.StatusDocument, error)
	ListErrors(ctx context.Context, videoID uuid.UUID) ([]db.PipelineError, error)
}

// Submitter queues a job for a worker
type Submitter interface {
	PublishVideoSubmitted(ctx context.Context, videoID uuid.UUID) error
}

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	store        StatusReader
	submitter    Submitter
	jwtService   *JWTService
	rateLimiter  *ratelimit.Limiter
	location     *time.Location
	pollInterval time.Duration
	logger       *slog.Logger
}

// Config holds server configuration
type Config struct {
	Addr      string
	Store     StatusReader
	JWT       *config.JWTConfig
	Gatherer  prometheus.Gatherer // Served at /metrics; defaults to the global registry
	Submitter Submitter           // Optional; without it POST /jobs/{id}/submit answers 503
	RateLimit *ratelimit.Config   // Defaults to ratelimit.DefaultConfig
	Location  *time.Location      // Zone for rendered timestamps; defaults to UTC
	// PollInterval is how often /jobs/{id}/events re-reads the status document
	PollInterval time.Duration
	Logger       *slog.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: status store is required")
	}
	if cfg.JWT == nil {
		return nil, fmt.Errorf("server: JWT configuration is required")
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		store:        cfg.Store,
		submitter:    cfg.Submitter,
		jwtService:   NewJWTService(cfg.JWT),
		rateLimiter:  ratelimit.NewLimiter(cfg.RateLimit),
		location:     cfg.Location,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger.With("component", "server"),
	}

	authed := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	// Job endpoints
	mux.Handle("GET /jobs/{id}/status", authed(http.HandlerFunc(s.handleJobStatus)))
	mux.Handle("GET /jobs/{id}/errors", authed(http.HandlerFunc(s.handleJobErrors)))
	mux.Handle("GET /jobs/{id}/events", authed(http.HandlerFunc(s.handleJobEvents)))
	mux.Handle("POST /jobs/{id}/submit", authed(http.HandlerFunc(s.handleSubmitJob)))

	addr := cfg.Addr
	if addr == "" {
		addr = config.DefaultListenAddr
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: the events stream stays open while a job runs
	}

	return s, nil
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		}
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps the wrapped writer usable for event streams
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status code. Internal failures are logged, not echoed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID identifies the caller by remote IP.
// X-Forwarded-For is not trusted since no proxy is assumed.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = retry
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	s.logger.Warn("rate limit exceeded", "client", extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
