package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the interview service.
type Config struct {
	BindAddr       string
	OpenAIAPIKey   string
	OracleModel    string
	DatabaseURL    string
	LogLevel       string
	LogJSON        bool
	DebugEndpoints bool
}

// Load reads a local .env file if present, then the environment, and
// applies safe defaults. The debug endpoints stay off unless explicitly
// enabled because they expose every stored user record.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		BindAddr:     envOrDefault("BIND_ADDR", ":"+envOrDefault("PORT", "8080")),
		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OracleModel:  envOrDefault("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}
	var err error
	cfg.LogJSON, err = boolFromEnv("LOG_JSON", true)
	if err != nil {
		return Config{}, err
	}
	cfg.DebugEndpoints, err = boolFromEnv("DEBUG_ENDPOINTS", false)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
