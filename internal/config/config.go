package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	APIRateLimit    int

	// Google Maps geocoding configuration.
	GoogleMapsAPIKey  string
	GeocoderEnabled   bool
	GeocoderTimeout   time.Duration
	GeocoderAttempts  int
	GeocoderQPS       int
	GeocoderCacheSize int

	// EONET hazard feed configuration.
	EONETBaseURL  string
	EONETAPIKey   string
	EONETTimeout  time.Duration
	FeedQuery     domain.FeedQuery
	FeedCacheTTL  time.Duration
	FeedCacheSize int

	// Optional shared feed cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StoreDriver string
	StoreDSN    string

	// Kafka publishing is disabled when no brokers are configured.
	KafkaBrokers    []string
	KafkaAlertTopic string

	AlertThresholdKm float64
	AlertTypes       []string
	MonitorSchedule  string
	CatalogFile      string
	// ImportFile is a CSV of persons loaded before the first monitor cycle.
	ImportFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parseDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	eonetTimeout, err := parseDuration("EONET_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	feedCacheTTL, err := parseDuration("FEED_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	geocoderAttempts, err := parsePositiveInt("GEOCODER_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	geocoderQPS, err := parsePositiveInt("GEOCODER_QPS", 10)
	if err != nil {
		return nil, err
	}
	apiRateLimit, err := parsePositiveInt("API_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	eonetDays, err := parseNonNegativeInt("EONET_DAYS", 30)
	if err != nil {
		return nil, err
	}
	eonetLimit, err := parseNonNegativeInt("EONET_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	threshold, err := domain.ParseThreshold(sharedcfg.EnvOrDefault("ALERT_THRESHOLD_KM", "200"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_THRESHOLD_KM: %w", err)
	}

	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	geocoderEnabled := apiKey != ""
	if v := os.Getenv("GEOCODER_ENABLED"); v != "" {
		geocoderEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		APIRateLimit:    apiRateLimit,

		GoogleMapsAPIKey:  apiKey,
		GeocoderEnabled:   geocoderEnabled,
		GeocoderTimeout:   geocoderTimeout,
		GeocoderAttempts:  geocoderAttempts,
		GeocoderQPS:       geocoderQPS,
		GeocoderCacheSize: parseCacheSize("GEOCODER_CACHE_SIZE", 1000),

		EONETBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("EONET_BASE_URL", "https://eonet.gsfc.nasa.gov/api/v3"), "/"),
		EONETAPIKey:  os.Getenv("EONET_API_KEY"),
		EONETTimeout: eonetTimeout,
		FeedQuery: domain.FeedQuery{
			Status:   strings.ToLower(sharedcfg.EnvOrDefault("EONET_STATUS", domain.StatusOpen)),
			Days:     eonetDays,
			Limit:    eonetLimit,
			Category: os.Getenv("EONET_CATEGORY"),
		},
		FeedCacheTTL:  feedCacheTTL,
		FeedCacheSize: parseCacheSize("FEED_CACHE_SIZE", 64),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", "sqlite")),
		StoreDSN:    sharedcfg.EnvOrDefault("STORE_DSN", "file:alumni.db?_pragma=busy_timeout(5000)"),

		KafkaBrokers:    ParseList(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "proximity-alerts"),

		AlertThresholdKm: threshold,
		AlertTypes:       ParseList(sharedcfg.EnvOrDefault("ALERT_TYPES", strings.Join(domain.DefaultCatalog().Names(), ","))),
		MonitorSchedule:  sharedcfg.EnvOrDefault("MONITOR_SCHEDULE", "@every 15m"),
		CatalogFile:      os.Getenv("CATALOG_FILE"),
		ImportFile:       os.Getenv("IMPORT_CSV"),
	}

	if cfg.GeocoderEnabled && cfg.GoogleMapsAPIKey == "" {
		return nil, errors.New("GEOCODER_ENABLED is true but GOOGLE_MAPS_API_KEY is not set")
	}
	if err := cfg.FeedQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid EONET_STATUS/EONET_DAYS/EONET_LIMIT: %w", err)
	}
	switch cfg.StoreDriver {
	case "sqlite", "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want sqlite or postgres", cfg.StoreDriver)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if len(cfg.AlertTypes) == 0 {
		return nil, errors.New("ALERT_TYPES must name at least one disaster type")
	}
	if strings.TrimSpace(cfg.MonitorSchedule) == "" {
		return nil, errors.New("MONITOR_SCHEDULE is required")
	}

	return cfg, nil
}

// KafkaEnabled reports whether alerts should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ParseList splits a comma-separated value with the shared broker-list
// parser, trimming and dropping blank entries.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range sharedcfg.ParseBrokers(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

func parseCacheSize(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
