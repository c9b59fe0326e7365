package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Booking BookingConfig
	Payout  PayoutConfig
}

type ServerConfig struct {
	Port string
}

type BookingConfig struct {
	// PlatformCommissionPercent is the default rate when an owner has
	// no override (whole percent, 1-50).
	PlatformCommissionPercent int
	// CancellationWindowHours is the minimum notice for a refundable
	// cancellation.
	CancellationWindowHours int
	// MinOpenSpanHours is the smallest allowed span between a
	// listing's opening and closing time.
	MinOpenSpanHours int
	// MaxAdvanceDays bounds how far ahead recurring occurrences may
	// materialize reservations.
	MaxAdvanceDays int
}

type PayoutConfig struct {
	// RetryWindowHours bounds how far back failed payouts are retried.
	RetryWindowHours int
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Booking: BookingConfig{
			PlatformCommissionPercent: getEnvInt("PLATFORM_COMMISSION_PERCENT", 20),
			CancellationWindowHours:   getEnvInt("CANCELLATION_WINDOW_HOURS", 24),
			MinOpenSpanHours:          getEnvInt("MIN_OPEN_SPAN_HOURS", 4),
			MaxAdvanceDays:            getEnvInt("MAX_ADVANCE_DAYS", 90),
		},
		Payout: PayoutConfig{
			RetryWindowHours: getEnvInt("PAYOUT_RETRY_WINDOW_HOURS", 24),
		},
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
