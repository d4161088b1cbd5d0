// Package config loads service configuration from the environment. Every
// knob has a default that works for local development against a stock
// Postgres; production supplies real values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the API server needs at startup.
type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	TokenSecret     string
	TokenIssuer     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RateBurst       int
	RatePerSecond   int
	MaxBodyBytes    int64
}

// Load reads ISSUEDESK_* environment variables. An empty DatabaseURL means
// the server runs on the in-memory store (development only).
func Load() Config {
	return Config{
		HTTPAddr:        getenv("ISSUEDESK_HTTP_ADDR", ":8080"),
		DatabaseURL:     getenv("ISSUEDESK_PG_DSN", ""),
		TokenSecret:     strings.TrimSpace(os.Getenv("ISSUEDESK_AUTH_SECRET")),
		TokenIssuer:     getenv("ISSUEDESK_TOKEN_ISSUER", "issuedesk"),
		AccessTokenTTL:  getenvDuration("ISSUEDESK_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getenvDuration("ISSUEDESK_REFRESH_TOKEN_TTL", 14*24*time.Hour),
		RateBurst:       getenvInt("ISSUEDESK_RATE_BURST", 20),
		RatePerSecond:   getenvInt("ISSUEDESK_RATE_PER_SECOND", 10),
		MaxBodyBytes:    int64(getenvInt("ISSUEDESK_MAX_BODY_BYTES", 1<<20)),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
