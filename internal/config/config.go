package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint   = "https://content.guardianapis.com/search"
	DefaultShowFields = "trailText,byline,thumbnail"
)

// Common contains the content API, display and cache parameters shared by every binary.
type Common struct {
	Endpoint       string
	APIKey         string
	PageSize       int
	ShowFields     string
	OrderBy        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	SettingsPath string
	Locale       string
	Timezone     string

	ThumbnailCapacity    int
	ThumbnailTTL         time.Duration
	ThumbnailMaxWidth    int
	ThumbnailConcurrency int

	KafkaBrokers []string
	KafkaTopic   string
}

// Location resolves Timezone. Validate guarantees it loads.
func (c Common) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventsEnabled reports whether feed events should be published to Kafka.
func (c Common) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr string
}

// Worker configures the scheduled refresh loop.
type Worker struct {
	Common
	Schedule   string
	RunTimeout time.Duration
}

// Reader configures the terminal client.
type Reader struct {
	Common
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}
	c := &API{
		Common:   *common,
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
	}
	if strings.TrimSpace(c.BindAddr) == "" {
		return nil, fmt.Errorf("API_BIND_ADDR must not be empty")
	}
	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}
	c := &Worker{
		Common:     *common,
		Schedule:   getEnv("WORKER_SCHEDULE", "*/15 * * * *"),
		RunTimeout: getDuration("WORKER_RUN_TIMEOUT", "2m"),
	}
	if c.RunTimeout <= 0 {
		return nil, fmt.Errorf("WORKER_RUN_TIMEOUT must be positive")
	}
	return c, nil
}

// LoadReader builds a Reader config from environment variables.
func LoadReader() (*Reader, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}
	return &Reader{Common: *common}, nil
}

func loadCommon() (*Common, error) {
	c := &Common{
		Endpoint:       getEnv("GUARDIAN_ENDPOINT", DefaultEndpoint),
		APIKey:         getEnv("GUARDIAN_API_KEY", "test"),
		PageSize:       getInt("GUARDIAN_PAGE_SIZE", 10),
		ShowFields:     getEnv("GUARDIAN_SHOW_FIELDS", DefaultShowFields),
		OrderBy:        getEnv("GUARDIAN_ORDER_BY", "newest"),
		ConnectTimeout: getDuration("GUARDIAN_CONNECT_TIMEOUT", "15s"),
		ReadTimeout:    getDuration("GUARDIAN_READ_TIMEOUT", "10s"),

		SettingsPath: getEnv("SETTINGS_PATH", defaultSettingsPath()),
		Locale:       getEnv("DISPLAY_LOCALE", "en-US"),
		Timezone:     getEnv("DISPLAY_TIMEZONE", "UTC"),

		ThumbnailCapacity:    getInt("THUMBNAIL_CACHE_CAPACITY", 256),
		ThumbnailTTL:         getDuration("THUMBNAIL_CACHE_TTL", "1h"),
		ThumbnailMaxWidth:    getInt("THUMBNAIL_MAX_WIDTH", 320),
		ThumbnailConcurrency: getInt("THUMBNAIL_CONCURRENCY", 4),

		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "news_feed"),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and that the timezone is loadable.
func (c *Common) Validate() error {
	if c.PageSize < 1 || c.PageSize > 50 {
		return fmt.Errorf("GUARDIAN_PAGE_SIZE must be between 1 and 50")
	}
	if c.APIKey == "" {
		return fmt.Errorf("GUARDIAN_API_KEY must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("GUARDIAN_CONNECT_TIMEOUT must be positive")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("GUARDIAN_READ_TIMEOUT must be positive")
	}
	if c.SettingsPath == "" {
		return fmt.Errorf("SETTINGS_PATH must not be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.ThumbnailCapacity <= 0 {
		return fmt.Errorf("THUMBNAIL_CACHE_CAPACITY must be positive")
	}
	if c.ThumbnailMaxWidth <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_WIDTH must be positive")
	}
	if c.ThumbnailConcurrency <= 0 {
		return fmt.Errorf("THUMBNAIL_CONCURRENCY must be positive")
	}
	if c.EventsEnabled() && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	return nil
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "settings.yaml"
	}
	return filepath.Join(dir, "news-reader", "settings.yaml")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
