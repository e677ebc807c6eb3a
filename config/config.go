package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is everything the service reads from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	GeoAPIBaseURL string        `env:"GEO_API_BASE_URL" envDefault:"https://countriesnow.space/api/v0.1/"`
	GeoAPITimeout time.Duration `env:"GEO_API_TIMEOUT" envDefault:"0s"`

	FormTTL             time.Duration `env:"FORM_TTL" envDefault:"30m"`
	FormCleanupInterval time.Duration `env:"FORM_CLEANUP_INTERVAL" envDefault:"10m"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://localhost:8080,http://127.0.0.1:3000"`
	CORSDebug      bool     `env:"CORS_DEBUG" envDefault:"false"`

	LogLevel  string `env:"LOGGING_LEVEL" envDefault:"INFO"`
	LogFormat string `env:"LOGGING_FORMAT" envDefault:"CONSOLE"`
}

// LoadEnv loads the first .env file it finds into the process environment.
// Variables already set in the environment win over the file.
func LoadEnv() (string, error) {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		os.Getenv("LOCATION_FORM_ENV"),
	}

	for _, path := range possiblePaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return path, fmt.Errorf("error loading %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// Parse reads Config from the current environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FormTTL <= 0 {
		return Config{}, fmt.Errorf("FORM_TTL must be positive, got %s", cfg.FormTTL)
	}
	if cfg.GeoAPITimeout < 0 {
		return Config{}, fmt.Errorf("GEO_API_TIMEOUT must not be negative, got %s", cfg.GeoAPITimeout)
	}
	return cfg, nil
}
