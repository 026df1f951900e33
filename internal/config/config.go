package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Addr           string
	AuthSecret     string
	VaultSecret    string
	DataDir        string
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimit      int
	RateBurst      int
}

// Load reads configuration from the environment. The auth secret has no
// default: the process must not come up able to accept credentials signed
// with a guessable key.
func Load() (Config, error) {
	authSecret := strings.TrimSpace(os.Getenv("NOVELDESK_AUTH_SECRET"))
	if authSecret == "" {
		return Config{}, fmt.Errorf("NOVELDESK_AUTH_SECRET is not set")
	}

	vaultSecret := strings.TrimSpace(os.Getenv("NOVELDESK_VAULT_SECRET"))
	if vaultSecret == "" {
		vaultSecret = authSecret
	}

	return Config{
		Addr:           getenv("NOVELDESK_ADDR", ":7385"),
		AuthSecret:     authSecret,
		VaultSecret:    vaultSecret,
		DataDir:        getenv("NOVELDESK_DATA_DIR", "./data"),
		AllowedOrigins: splitOrigins(getenv("NOVELDESK_ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout: getenvDuration("NOVELDESK_REQUEST_TIMEOUT", 10*time.Second),
		RateLimit:      getenvInt("NOVELDESK_RATE_LIMIT_PER_MINUTE", 120),
		RateBurst:      getenvInt("NOVELDESK_RATE_BURST", 30),
	}, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
