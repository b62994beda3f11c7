package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"backendmonitoring/internal/api"
	"backendmonitoring/internal/config"
	"backendmonitoring/internal/logging"
	"backendmonitoring/internal/metrics"
	"backendmonitoring/internal/workload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// run starts the service and blocks until ctx is done or the server fails.
// Buffered log events are shipped before it returns.
func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	// Setup logger, shipping to Loki when a host is configured
	var sinks []io.Writer
	var loki *logging.LokiWriter
	if cfg.Loki.Enabled() {
		loki = logging.NewLokiWriter(cfg.Loki)
		sinks = append(sinks, loki)
	}
	logger := logging.New(cfg.Logging, os.Stdout, sinks...)
	log.Logger = logger

	if loki != nil {
		lokiCtx, stopLoki := context.WithCancel(context.Background())
		lokiDone := make(chan struct{})
		go func() {
			defer close(lokiDone)
			if err := loki.Run(lokiCtx); err != nil {
				fmt.Fprintf(os.Stderr, "loki writer stopped: %v\n", err)
			}
		}()
		defer func() {
			stopLoki()
			<-lokiDone
		}()
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("version", cfg.Version).
		Str("log_level", cfg.Logging.Level).
		Bool("loki", cfg.Loki.Enabled()).
		Msg("Logger initialized")

	// Metrics
	registry := metrics.NewRegistry(logger)
	requestTiming, err := registry.NewHistogram(metrics.RequestTimingOpts())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register request timing histogram")
		return err
	}

	processMetrics, err := registry.CollectDefaultMetrics(metrics.ProcfsSampler{}, cfg.Metrics.SampleInterval)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register process metrics")
		return err
	}

	if cfg.Metrics.GoRuntime {
		if err := registry.RegisterGoRuntime(); err != nil {
			logger.Error().Err(err).Msg("Failed to register Go runtime metrics")
			return err
		}
	}

	// Create API server
	server, err := api.NewServer(api.ServerConfig{
		Port:         cfg.Server.Port,
		Host:         cfg.Server.Host,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Version:      cfg.Version,
		MetricsPath:  cfg.Metrics.Path,
		Development:  cfg.IsDevelopment(),
	}, api.Dependencies{
		Metrics:       registry,
		RequestTiming: requestTiming,
		Workload:      workload.NewSimulator(workload.Options{}),
		Logger:        logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create server")
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("Server listening")
		return server.Start()
	})

	g.Go(func() error {
		return processMetrics.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Server error")
		return err
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}
