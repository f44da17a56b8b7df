package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataURL         string
	BackendURL      string
	WMSURL          string
	BingKey         string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FetchTimeout     time.Duration
	BackendTimeout   time.Duration
	ImageIDCacheSize int

	// Initial selection; empty means the first entry of the catalog.
	DefaultModel string
	DefaultAOI   string

	// Saved-annotation events. Publishing is disabled without brokers.
	KafkaBrokers         []string
	KafkaAnnotationTopic string

	// Product analytics. Disabled without a key.
	PostHogKey  string
	PostHogHost string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	backendTimeout, err := parsePositiveDuration("BACKEND_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataURL:          ensureTrailingSlash(os.Getenv("DATA_URL")),
		BackendURL:       ensureTrailingSlash(os.Getenv("BACKEND_URL")),
		WMSURL:           os.Getenv("WMS_URL"),
		BingKey:          os.Getenv("BING_KEY"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		FetchTimeout:     fetchTimeout,
		BackendTimeout:   backendTimeout,
		ImageIDCacheSize: parseImageIDCacheSize(),
		DefaultModel:     os.Getenv("DEFAULT_MODEL"),
		DefaultAOI:       os.Getenv("DEFAULT_AOI"),

		KafkaBrokers:         sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAnnotationTopic: sharedcfg.EnvOrDefault("KAFKA_ANNOTATION_TOPIC", "annotations"),

		PostHogKey:  os.Getenv("POSTHOG_KEY"),
		PostHogHost: sharedcfg.EnvOrDefault("POSTHOG_HOST", "https://eu.i.posthog.com"),
	}

	if cfg.DataURL == "" {
		return nil, errors.New("DATA_URL is required")
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL is required")
	}
	if cfg.DefaultAOI != "" && cfg.DefaultModel == "" {
		return nil, errors.New("DEFAULT_AOI requires DEFAULT_MODEL")
	}

	return cfg, nil
}

// PublishingEnabled reports whether saved annotations go to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// AnalyticsEnabled reports whether view events go to PostHog.
func (c *Config) AnalyticsEnabled() bool {
	return c.PostHogKey != ""
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseImageIDCacheSize() int {
	if s := os.Getenv("IMAGE_ID_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

// ensureTrailingSlash makes base URLs safe for plain concatenation with
// relative fixture paths.
func ensureTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
