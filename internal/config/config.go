// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/hos"
)

// ErrMissingBackendURL is returned when BACKEND_BASE_URL is unset.
var ErrMissingBackendURL = errors.New("BACKEND_BASE_URL must be set")

// Config holds the service configuration.
type Config struct {
	Port        string
	Environment string
	LogLevel    zerolog.Level

	BackendBaseURL  string
	BackendToken    string
	BackendTimeout  time.Duration
	LogFetchRetries int

	GoogleMapsAPIKey string
	RedisURL         string
	GeocodeCacheTTL  time.Duration

	Cycle         hos.Cycle
	TickInterval  time.Duration
	FrameInterval time.Duration

	NATSURL         string
	NATSPublishRate float64

	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr string

	OTelEnabled  bool
	OTLPEndpoint string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvOrDefault("APP_PORT", "8080"),
		Environment:      getEnvOrDefault("APP_ENV", "development"),
		BackendBaseURL:   strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/"),
		BackendToken:     os.Getenv("BACKEND_TOKEN"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		RedisURL:         os.Getenv("REDIS_URL"),
		NATSURL:          os.Getenv("NATS_URL"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		OTelEnabled:      parseBool(os.Getenv("OTEL_ENABLED")),
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Cycle:            hos.CycleByChoice(getEnvOrDefault("CYCLE_TYPE", "70")),
	}

	if cfg.BackendBaseURL == "" {
		return nil, ErrMissingBackendURL
	}
	if u, err := url.Parse(cfg.BackendBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL: %q", cfg.BackendBaseURL)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if choice := os.Getenv("CYCLE_TYPE"); choice != "" && choice != "70" && choice != "60" {
		return nil, fmt.Errorf("invalid CYCLE_TYPE: %q (want 70 or 60)", choice)
	}

	if cfg.BackendTimeout, err = duration("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = duration("GEOCODE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = duration("CYCLE_TICK_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.FrameInterval, err = duration("ANIMATION_FRAME_INTERVAL", 16*time.Millisecond); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_FETCH_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid LOG_FETCH_RETRIES: %q", v)
		}
		cfg.LogFetchRetries = n
	} else {
		cfg.LogFetchRetries = 3
	}

	if v := os.Getenv("NATS_PUBLISH_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid NATS_PUBLISH_RATE: %q", v)
		}
		cfg.NATSPublishRate = f
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
