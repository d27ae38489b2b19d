// Package config centralises configuration parsing for the trainer client.
package config

import (
	"os"
	"time"
)

// Config captures runtime configuration values.
type Config struct {
	APIBaseURL      string        // Trainer backend base URL.
	APIToken        string        // Bearer token attached to every request.
	RedisURL        string        // Optional; selects the Redis store when set.
	StoragePath     string        // SQLite path used when RedisURL is empty.
	CalendarFeedURL string        // Optional ICS feed for workout annotation.
	RequestTimeout  time.Duration // Remote client timeout.
}

// Load reads environment variables into Config, applying defaults suitable
// for local use.
func Load() Config {
	return Config{
		APIBaseURL:      getEnv("TRAINER_API_URL", "https://trainer-2-0.onrender.com/v1"),
		APIToken:        getEnv("TRAINER_API_TOKEN", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		StoragePath:     getEnv("TRAINER_STORAGE_PATH", "trainer.db"),
		CalendarFeedURL: getEnv("TRAINER_CALENDAR_FEED", ""),
		RequestTimeout:  getDurationEnv("TRAINER_REQUEST_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
