package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	AuthorizerURL   string
	AuthMaxAttempts int
	AuthBackoff     time.Duration

	NotifierURL string
}

// LoadConfig reads .env file and returns a Config struct
func LoadConfig() *Config {
	// Try loading .env file (it might not exist in Production, which is fine)
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	return &Config{
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Env:         getEnv("ENV", "development"),

		AuthorizerURL:   getEnv("AUTHORIZER_URL", "https://util.devi.tools/api/v2/authorize"),
		AuthMaxAttempts: getEnvInt("AUTH_MAX_ATTEMPTS", 3),
		AuthBackoff:     time.Duration(getEnvInt("AUTH_BACKOFF_MS", 2000)) * time.Millisecond,

		NotifierURL: getEnv("NOTIFIER_URL", "https://util.devi.tools/api/v1/notify"),
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring non-numeric env value", "key", key, "value", value)
		return fallback
	}
	return n
}
