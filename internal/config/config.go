package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	// MaxRetries bounds the compare-and-apply retry loop per operation.
	MaxRetries int
	// IdempotencyTTL is how long a completed transfer result is remembered
	// for idempotency-key replays.
	IdempotencyTTL time.Duration
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxRetries:     getEnvAsInt("LEDGER_MAX_RETRIES", 5),
		IdempotencyTTL: getEnvAsDuration("LEDGER_IDEMPOTENCY_TTL", 24*time.Hour),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
