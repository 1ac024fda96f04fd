package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/astro-resonance-service/internal/adapter/ephemeris"
	httpadapter "github.com/couchcryptid/astro-resonance-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/astro-resonance-service/internal/adapter/kafka"
	"github.com/couchcryptid/astro-resonance-service/internal/config"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
	"github.com/couchcryptid/astro-resonance-service/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	engine, err := ephemeris.NewEngine(cfg.EphemerisPath, logger)
	if err != nil {
		logger.Error("failed to load ephemeris", "error", err)
		os.Exit(1)
	}
	eph := ephemeris.NewCachedEphemeris(engine, cfg.EphemerisCacheSize, metrics)
	composer := pipeline.NewComposer(eph, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	// Reading events are feature-flagged via KAFKA_ENABLED.
	// Stopped only after the HTTP server has drained.
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()

	var (
		writer       *kafkaadapter.Writer
		publisherErr = make(chan error, 1)
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher := pipeline.NewPublisher(writer, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval, cfg.PublishBuffer)
		opts.Events = publisher
		logger.Info("reading events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReadingsTopic)

		go func() { publisherErr <- publisher.Run(pubCtx) }()
	} else {
		logger.Info("reading events disabled")
		close(publisherErr)
	}

	srv := httpadapter.NewServer(opts, composer, engine, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	stopPublisher()
	select {
	case err := <-publisherErr:
		if err != nil {
			logger.Error("publisher error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("publisher did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
