package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	Port           string
	Environment    string
	MigrationsPath string

	StaticTokens []string
	JWTSecret    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Load reads .env if present, then the environment. DATABASE_URL is the only
// hard requirement.
func Load() (*Config, error) {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load(".env")

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               os.Getenv("PORT"),
		Environment:        os.Getenv("ENV"),
		MigrationsPath:     os.Getenv("MIGRATIONS_PATH"),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	if tokens := strings.TrimSpace(os.Getenv("STATIC_TOKENS")); tokens != "" {
		cfg.StaticTokens = strings.Split(tokens, ",")
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
