package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/eventbuffer/internal/buffer"
	"github.com/jittakal/eventbuffer/internal/bus"
	"github.com/jittakal/eventbuffer/internal/config"
	"github.com/jittakal/eventbuffer/internal/kafka"
	"github.com/jittakal/eventbuffer/internal/observability"
	"github.com/jittakal/eventbuffer/internal/server"
	"github.com/jittakal/eventbuffer/internal/storage"
	"github.com/jittakal/eventbuffer/internal/validator"
	pkgbuffer "github.com/jittakal/eventbuffer/pkg/buffer"
	pkgbus "github.com/jittakal/eventbuffer/pkg/bus"
	"github.com/jittakal/eventbuffer/pkg/consumer"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Priority: CLI flag > CONFIG_PATH env var > default path
	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/application.yaml"
	}

	cfg, err := config.NewLoader().Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(loggingConfig(cfg))
	logger.Info("starting event buffer",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
		"store_backend", cfg.Store.Backend,
		"bus_enabled", cfg.Bus.Enabled,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, err := storage.NewStore(startCtx, storeConfig(cfg), logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	var publisher pkgbus.Publisher
	if cfg.Bus.Enabled {
		publisher, err = bus.NewPublisher(startCtx, busConfig(cfg), logger, metrics)
		if err != nil {
			closeQuietly(logger, "store", store.Close)
			return fmt.Errorf("failed to create bus publisher: %w", err)
		}
	}

	eventBuffer, err := buffer.New(bufferConfig(cfg), store, publisher, logger, metrics)
	if err != nil {
		if publisher != nil {
			closeQuietly(logger, "bus", publisher.Close)
		}
		closeQuietly(logger, "store", store.Close)
		return fmt.Errorf("failed to create event buffer: %w", err)
	}
	registry.MustRegister(observability.NewStatsCollector(eventBuffer))

	eventValidator := validator.NewEventValidator()

	var sources []consumer.Source
	if cfg.Ingest.Kafka.Enabled {
		source, err := kafka.NewSource(sourceConfig(cfg), eventBuffer, eventValidator, logger, metrics)
		if err != nil {
			shutdown(logger, cfg.Shutdown.GracePeriod, nil, nil, eventBuffer, publisher, store)
			return fmt.Errorf("failed to create kafka source: %w", err)
		}
		sources = append(sources, source)
	}

	httpServer := server.NewServer(serverConfig(cfg), eventBuffer, eventValidator, registry, logger)
	if err := httpServer.Start(); err != nil {
		shutdown(logger, cfg.Shutdown.GracePeriod, sources, nil, eventBuffer, publisher, store)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sourceErrChan := make(chan error, len(sources))
	for _, source := range sources {
		go func() {
			sourceErrChan <- source.Run(ctx)
		}()
	}

	logger.Info("application started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received termination signal", "signal", sig.String())
	case err := <-sourceErrChan:
		if err != nil {
			logger.Error("source failed", "error", err)
			runErr = err
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()
	shutdown(logger, cfg.Shutdown.GracePeriod, sources, httpServer, eventBuffer, publisher, store)

	logger.Info("application stopped")
	return runErr
}

// drainer is the part of the event buffer shutdown depends on.
type drainer interface {
	Close(ctx context.Context) error
	Stats() pkgbuffer.Stats
}

// shutdown stops components in dependency order: sources, HTTP, buffer
// (final flush and in-flight publishes), bus, store.
func shutdown(
	logger *slog.Logger,
	grace time.Duration,
	sources []consumer.Source,
	httpServer *server.Server,
	eventBuffer drainer,
	publisher pkgbus.Publisher,
	store interface{ Close() error },
) {
	if grace <= 0 {
		grace = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	for _, source := range sources {
		closeQuietly(logger, "source", source.Close)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}
	if eventBuffer != nil {
		if err := eventBuffer.Close(ctx); err != nil {
			// The processor may still be flushing; closing the bus and the
			// store now would fail that batch against closed connections.
			stats := eventBuffer.Stats()
			logger.Error("buffer did not drain, abandoning resident events",
				"grace_period", grace,
				"resident_events", stats.CurrentBufferSize,
				"error", err,
			)
			logger.Warn("leaving bus and store open while the batch processor runs")
			logger.Info("final buffer stats", "stats", stats)
			return
		}
		logger.Info("final buffer stats", "stats", eventBuffer.Stats())
	}
	if publisher != nil {
		closeQuietly(logger, "bus", publisher.Close)
	}
	if store != nil {
		closeQuietly(logger, "store", store.Close)
	}
}

func closeQuietly(logger *slog.Logger, component string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("failed to close component", "component", component, "error", err)
	}
}
