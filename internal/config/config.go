package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // FORECAST_TIMEZONE must resolve in minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Alert store backends.
const (
	StoreCosmic = "cosmic"
	StoreSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Forecast API configuration.
	ForecastAPIKey   string
	ForecastBaseURL  string
	ForecastLat      float64
	ForecastLon      float64
	ForecastTimezone string
	ForecastTimeout  time.Duration
	ForecastCacheTTL time.Duration

	// Rule thresholds.
	ThresholdHighTemp     float64
	ThresholdLowTemp      float64
	ThresholdHighHumidity float64
	ThresholdLowHumidity  float64
	FiberIDs              string

	// Alert store configuration.
	StoreBackend     string
	CosmicBaseURL    string
	CosmicBucketSlug string
	CosmicReadKey    string
	CosmicWriteKey   string
	CosmicTimeout    time.Duration
	SQLitePath       string

	// Refresh and presentation.
	StoreListLimit      int
	BadgeLimit          int
	BadgePollInterval   time.Duration
	RefreshInterval     time.Duration
	PageSize            int
	NotificationHistory int

	// Optional alert event stream.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Optional Slack forwarding of notifications.
	SlackWebhookURL string
	SlackChannel    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ForecastAPIKey:   os.Getenv("FORECAST_API_KEY"),
		ForecastBaseURL:  sharedcfg.EnvOrDefault("FORECAST_BASE_URL", "https://api.openweathermap.org/data/2.5/forecast"),
		ForecastLat:      p.float("FORECAST_LAT", 37.93368938103214),
		ForecastLon:      p.float("FORECAST_LON", -7.7964679692230865),
		ForecastTimezone: sharedcfg.EnvOrDefault("FORECAST_TIMEZONE", "Europe/Lisbon"),
		ForecastTimeout:  p.positiveDuration("FORECAST_TIMEOUT", 5*time.Second),
		ForecastCacheTTL: p.duration("FORECAST_CACHE_TTL", 5*time.Minute),

		ThresholdHighTemp:     p.float("THRESHOLD_HIGH_TEMP", 30),
		ThresholdLowTemp:      p.float("THRESHOLD_LOW_TEMP", 2),
		ThresholdHighHumidity: p.float("THRESHOLD_HIGH_HUMIDITY", 50),
		ThresholdLowHumidity:  p.float("THRESHOLD_LOW_HUMIDITY", 20),
		FiberIDs:              sharedcfg.EnvOrDefault("FIBER_IDS", "1, 2, 3"),

		StoreBackend:     strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", StoreCosmic)),
		CosmicBaseURL:    sharedcfg.EnvOrDefault("COSMIC_BASE_URL", "https://api.cosmicjs.com/v3"),
		CosmicBucketSlug: os.Getenv("COSMIC_BUCKET_SLUG"),
		CosmicReadKey:    os.Getenv("COSMIC_READ_KEY"),
		CosmicWriteKey:   os.Getenv("COSMIC_WRITE_KEY"),
		CosmicTimeout:    p.positiveDuration("COSMIC_TIMEOUT", 10*time.Second),
		SQLitePath:       sharedcfg.EnvOrDefault("SQLITE_PATH", "data/alerts.db"),

		StoreListLimit:      p.positiveInt("STORE_LIST_LIMIT", 100),
		BadgeLimit:          p.positiveInt("BADGE_LIMIT", 5),
		BadgePollInterval:   p.positiveDuration("BADGE_POLL_INTERVAL", 60*time.Second),
		RefreshInterval:     p.duration("REFRESH_INTERVAL", 0),
		PageSize:            p.positiveInt("PAGE_SIZE", 13),
		NotificationHistory: p.positiveInt("NOTIFICATION_HISTORY", 20),

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "fiber-alerts"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SlackChannel:    os.Getenv("SLACK_CHANNEL"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves ForecastTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ForecastTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	if c.ForecastAPIKey == "" {
		return errors.New("FORECAST_API_KEY is required")
	}
	if c.ForecastLat < -90 || c.ForecastLat > 90 {
		return errors.New("FORECAST_LAT must be within [-90, 90]")
	}
	if c.ForecastLon < -180 || c.ForecastLon > 180 {
		return errors.New("FORECAST_LON must be within [-180, 180]")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.ForecastCacheTTL < 0 {
		return errors.New("FORECAST_CACHE_TTL must not be negative")
	}
	if c.RefreshInterval < 0 {
		return errors.New("REFRESH_INTERVAL must not be negative")
	}

	switch c.StoreBackend {
	case StoreCosmic:
		if c.CosmicBucketSlug == "" {
			return errors.New("COSMIC_BUCKET_SLUG is required when STORE_BACKEND is cosmic")
		}
		if c.CosmicReadKey == "" || c.CosmicWriteKey == "" {
			return errors.New("COSMIC_READ_KEY and COSMIC_WRITE_KEY are required when STORE_BACKEND is cosmic")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE_BACKEND is sqlite")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", c.StoreBackend, StoreCosmic, StoreSQLite)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaAlertTopic == "" {
			return errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

// parser reads typed environment values and records the first failure.
type parser struct {
	err error
}

func (p *parser) fail(key string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s", key)
	}
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) positiveInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		p.fail(key)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.fail(key)
		return def
	}
	return d
}

func (p *parser) positiveDuration(key string, def time.Duration) time.Duration {
	d := p.duration(key, def)
	if d <= 0 {
		p.fail(key)
		return def
	}
	return d
}
