package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the API service
type Config struct {
	// HTTP server
	Port           string
	AllowedOrigins []string

	// Database
	DatabasePath string // SQLite file (default backend)
	DatabaseURL  string // Postgres; takes precedence when set

	// MTA realtime feeds
	MTAAPIKey    string
	FeedBaseURL  string
	FetchTimeout time.Duration
	FeedCacheTTL time.Duration // 0 disables the decoded-feed cache

	// Lookup table overrides (feed groups, trunks, colors)
	TablesPath string

	// Station hub resolution
	TransferRouteMin int // route count at which a hub counts as a transfer hub

	// Arrival aggregation
	ArrivalsPerGroup int           // max arrivals kept per (route, direction)
	ArrivalHorizon   time.Duration // predictions further out are dropped
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},

		DatabasePath: getEnv("SQLITE_DATABASE", "data/transit.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		MTAAPIKey:    getEnv("MTA_API_KEY", ""),
		FeedBaseURL:  getEnv("MTA_FEED_BASE_URL", "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds"),
		FetchTimeout: time.Duration(getEnvInt("FEED_TIMEOUT_SECONDS", 10)) * time.Second,
		FeedCacheTTL: time.Duration(getEnvInt("FEED_CACHE_SECONDS", 30)) * time.Second,

		TablesPath: getEnv("TABLES_FILE", ""),

		TransferRouteMin: getEnvInt("TRANSFER_ROUTE_MIN", 3),

		ArrivalsPerGroup: getEnvInt("ARRIVALS_PER_GROUP", 5),
		ArrivalHorizon:   time.Duration(getEnvInt("ARRIVAL_HORIZON_MINUTES", 30)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
