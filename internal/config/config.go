package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Ephemeris data and caching.
	EphemerisPath      string
	EphemerisCacheSize int

	// Per-client rate limiting; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Reading event publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaReadingsTopic string
	BatchSize          int
	BatchFlushInterval time.Duration
	PublishBuffer      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("EPHEMERIS_CACHE_SIZE", 4096)
	if err != nil {
		return nil, err
	}

	publishBuffer, err := parsePositiveInt("PUBLISH_BUFFER", 1024)
	if err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, errors.New("invalid RATE_LIMIT_RPS")
	}

	burst, err := strconv.Atoi(sharedcfg.EnvOrDefault("RATE_LIMIT_BURST", "20"))
	if err != nil || burst < 0 {
		return nil, errors.New("invalid RATE_LIMIT_BURST")
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid KAFKA_ENABLED")
		}
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EphemerisPath:      sharedcfg.EnvOrDefault("EPHEMERIS_PATH", "./ephe"),
		EphemerisCacheSize: cacheSize,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReadingsTopic: sharedcfg.EnvOrDefault("KAFKA_READINGS_TOPIC", "resonance-readings"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		PublishBuffer:      publishBuffer,
	}

	if cfg.EphemerisPath == "" {
		return nil, errors.New("EPHEMERIS_PATH is required")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		return nil, errors.New("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaReadingsTopic == "" {
		return nil, errors.New("KAFKA_READINGS_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
