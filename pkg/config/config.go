package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Geolocation GeolocationConfig
	OTEL        OTELConfig
	Search      SearchConfig
	Analytics   AnalyticsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// GeolocationConfig holds geocoder configuration
type GeolocationConfig struct {
	Provider string // static or google
	APIKey   string
	Region   string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// SearchConfig holds the tunables of the search engine.
// The scoring weights are product-tuned and should be reviewed before changing.
type SearchConfig struct {
	CacheTTL             time.Duration
	CacheMaxEntries      int
	DefaultLimit         int
	MaxLimit             int
	BranchTimeout        time.Duration
	PopularityTimeout    time.Duration
	IndexPoolSize        int
	IndexPageSize        int
	RebuildInterval      time.Duration
	SuggestionSampleSize int

	VenueNameWeight  int
	VenueTermWeight  int
	VenueCityWeight  int
	BlogTitleWeight  int
	BlogTermWeight   int
	BlogAuthorWeight int
	BlogVenueWeight  int
}

// AnalyticsConfig holds analytics tracker configuration
type AnalyticsConfig struct {
	Store         string // memory, postgres or badger
	BadgerPath    string
	SampleRate    float64
	HistoryWindow int
	HistoryMaxAge time.Duration
	QueueSize     int
	PublishEvents bool
	PurgeInterval time.Duration // 0 disables the scheduled purge
	MaxEvents     int           // cap of the memory store, 0 for none
}

// Load loads configuration from environment variables, reading a local .env first when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),

			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "mythirdplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Geolocation: GeolocationConfig{
			Provider: getEnv("GEOLOCATION_PROVIDER", "static"),
			APIKey:   getEnv("GEOLOCATION_API_KEY", ""),
			Region:   getEnv("GEOLOCATION_REGION", "uk"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "mythirdplace-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Search: SearchConfig{
			CacheTTL:             getEnvAsDuration("SEARCH_CACHE_TTL", 30*time.Minute),
			CacheMaxEntries:      getEnvAsInt("SEARCH_CACHE_MAX_ENTRIES", 100),
			DefaultLimit:         getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:             getEnvAsInt("SEARCH_MAX_LIMIT", 100),
			BranchTimeout:        getEnvAsDuration("SEARCH_BRANCH_TIMEOUT", 3*time.Second),
			PopularityTimeout:    getEnvAsDuration("SEARCH_POPULARITY_TIMEOUT", 2*time.Second),
			IndexPoolSize:        getEnvAsInt("SEARCH_INDEX_POOL_SIZE", 8),
			IndexPageSize:        getEnvAsInt("SEARCH_INDEX_PAGE_SIZE", 200),
			RebuildInterval:      getEnvAsDuration("SEARCH_REBUILD_INTERVAL", 0),
			SuggestionSampleSize: getEnvAsInt("SEARCH_SUGGESTION_SAMPLE", 50),
			VenueNameWeight:      getEnvAsInt("SEARCH_WEIGHT_VENUE_NAME", 5),
			VenueTermWeight:      getEnvAsInt("SEARCH_WEIGHT_VENUE_TERM", 3),
			VenueCityWeight:      getEnvAsInt("SEARCH_WEIGHT_VENUE_CITY", 2),
			BlogTitleWeight:      getEnvAsInt("SEARCH_WEIGHT_BLOG_TITLE", 10),
			BlogTermWeight:       getEnvAsInt("SEARCH_WEIGHT_BLOG_TERM", 3),
			BlogAuthorWeight:     getEnvAsInt("SEARCH_WEIGHT_BLOG_AUTHOR", 5),
			BlogVenueWeight:      getEnvAsInt("SEARCH_WEIGHT_BLOG_VENUE", 4),
		},
		Analytics: AnalyticsConfig{
			Store:         getEnv("ANALYTICS_STORE", "memory"),
			BadgerPath:    getEnv("BADGER_PATH", "./data/history"),
			SampleRate:    getEnvAsFloat("ANALYTICS_SAMPLE_RATE", 0.1),
			HistoryWindow: getEnvAsInt("ANALYTICS_HISTORY_WINDOW", 50),
			HistoryMaxAge: getEnvAsDuration("ANALYTICS_HISTORY_MAX_AGE", 90*24*time.Hour),
			QueueSize:     getEnvAsInt("ANALYTICS_QUEUE_SIZE", 1024),
			PublishEvents: getEnvAsBool("ANALYTICS_PUBLISH_EVENTS", false),
			PurgeInterval: getEnvAsDuration("ANALYTICS_PURGE_INTERVAL", 24*time.Hour),
			MaxEvents:     getEnvAsInt("ANALYTICS_MEMORY_MAX_EVENTS", 100000),
		},
	}

	switch cfg.Analytics.Store {
	case "memory", "postgres", "badger":
	default:
		return nil, fmt.Errorf("unsupported ANALYTICS_STORE %q", cfg.Analytics.Store)
	}

	switch cfg.Geolocation.Provider {
	case "static", "google":
	default:
		return nil, fmt.Errorf("unsupported GEOLOCATION_PROVIDER %q", cfg.Geolocation.Provider)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
