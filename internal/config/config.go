package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Env           string
	DBPath        string
	DBBusyTimeout time.Duration
	LogJSON       bool
}

func Load() Config {
	cfg := Config{
		Env:           getEnv("APP_ENV", "local"),
		DBPath:        getEnv("LENDING_DB_PATH", "booky.db"),
		DBBusyTimeout: getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second),
	}
	cfg.LogJSON = getEnvBool("LOG_JSON", cfg.Env == "prod" || cfg.Env == "production")
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		n := strings.ToLower(strings.TrimSpace(v))
		return n == "1" || n == "true" || n == "yes"
	}
	return fallback
}
