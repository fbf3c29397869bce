// Package server implements the HTTP API for ingestion, health checks and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// Config contains HTTP server settings.
type Config struct {
	APIPort        int
	MetricsPort    int
	MetricsEnabled bool
	MetricsPath    string
	LivenessPath   string
	ReadinessPath  string
}

func (c *Config) applyDefaults() {
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
}

// Server represents the API server and the metrics server.
type Server struct {
	apiServer     *http.Server
	metricsServer *http.Server
	logger        *slog.Logger
}

// NewRouter builds the API routes.
func NewRouter(cfg Config, ingestor buffer.Ingestor, validator event.Validator, logger *slog.Logger) *chi.Mux {
	cfg.applyDefaults()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get(cfg.LivenessPath, LivenessHandler(logger))
	r.Get(cfg.ReadinessPath, ReadinessHandler(ingestor, logger))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", StatsHandler(ingestor, logger))
		r.Post("/events", IngestHandler(ingestor, validator, logger))
	})

	return r
}

// NewServer creates the HTTP servers. The metrics server is omitted when
// metrics are disabled.
func NewServer(
	cfg Config,
	ingestor buffer.Ingestor,
	validator event.Validator,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	cfg.applyDefaults()

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      NewRouter(cfg, ingestor, validator, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return &Server{
		apiServer:     apiServer,
		metricsServer: metricsServer,
		logger:        logger,
	}
}

// Start starts the HTTP servers.
func (s *Server) Start() error {
	for _, srv := range s.servers() {
		go func() {
			s.logger.Info("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("http server failed", "addr", srv.Addr, "error", err)
			}
		}()
	}
	return nil
}

// Shutdown gracefully shuts down the servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	servers := s.servers()
	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			errChan <- srv.Shutdown(ctx)
		}()
	}

	var lastErr error
	for range servers {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			lastErr = err
		}
	}

	return lastErr
}

func (s *Server) servers() []*http.Server {
	if s.metricsServer == nil {
		return []*http.Server{s.apiServer}
	}
	return []*http.Server{s.apiServer, s.metricsServer}
}
