package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP server
	HTTPAddr string

	// SQLite data store
	DBPath string

	// Session memory
	SessionTimeout  time.Duration
	SweepInterval   time.Duration
	MaxInteractions int

	// Redis session snapshots (optional, empty URL disables)
	RedisURL string

	// NATS notifications (optional, empty URL disables)
	NatsURL         string
	NatsSubjectBase string
	NatsTimeout     time.Duration

	// Gemini classifier
	GeminiAPIKey    string
	GeminiModel     string
	ClassifyTimeout time.Duration

	// Service configuration
	ServiceName string
}

func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":5000"),

		DBPath: getEnv("DB_PATH", "data/studiodesk.db"),

		SessionTimeout:  getDurationEnv("SESSION_TIMEOUT", 30*time.Minute),
		SweepInterval:   getDurationEnv("SESSION_SWEEP_INTERVAL", 15*time.Minute),
		MaxInteractions: getIntEnv("SESSION_MAX_INTERACTIONS", 20),

		RedisURL: getEnv("REDIS_URL", ""),

		NatsURL:         getEnv("NATS_URL", ""),
		NatsSubjectBase: getEnv("NATS_SUBJECT_BASE", "webhooks"),
		NatsTimeout:     getDurationEnv("NATS_TIMEOUT", 5*time.Second),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ClassifyTimeout: getDurationEnv("CLASSIFY_TIMEOUT", 30*time.Second),

		ServiceName: getEnv("SERVICE_NAME", "studiodesk"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
