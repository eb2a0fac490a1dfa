package config

import (
	"os"
	"strconv"
	"time"
)

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envDuration reads a millisecond value, clamping to [min, max].
func envDuration(key string, fallback, min, max time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	millis, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	result := time.Duration(millis) * time.Millisecond
	if result < min {
		return min
	}
	if result > max {
		return max
	}
	return result
}

func envFloat(key string, fallback, min, max float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	if parsed < min {
		return min
	}
	if parsed > max {
		return max
	}
	return parsed
}
