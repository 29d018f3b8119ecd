package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	NatsURL     string
	WebhookURL  string
	Env         string
	// OpeningBalance is the balance assigned to new accounts, in minor units.
	OpeningBalance int64
	// MaxAccounts caps active accounts per user.
	MaxAccounts int
}

// LoadConfig reads .env when present and falls back to process env.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on system env variables")
	}

	return &Config{
		Port:           getEnv("PORT", "3000"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		NatsURL:        getEnv("NATS_URL", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		Env:            getEnv("ENV", "development"),
		OpeningBalance: getEnvInt64("OPENING_BALANCE", 10000),
		MaxAccounts:    int(getEnvInt64("MAX_ACCOUNTS", 3)),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		slog.Warn("invalid numeric env value, using default", "key", key, "value", value)
		return fallback
	}
	return n
}
