package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration, sourced from environment variables.
type Config struct {
	Addr string `env:"CERBERO_ADDR" envDefault:":8080"`

	// PGDSN is optional: without it the API runs on the in-memory store,
	// which is only suitable for local development and tests.
	PGDSN string `env:"CERBERO_PG_DSN"`

	JWTSecret   string        `env:"CERBERO_JWT_SECRET"`
	JWTIssuer   string        `env:"CERBERO_JWT_ISSUER" envDefault:"cerbero"`
	JWTAudience string        `env:"CERBERO_JWT_AUDIENCE" envDefault:"cerbero-api"`
	TokenTTL    time.Duration `env:"CERBERO_TOKEN_TTL" envDefault:"1h"`

	CORSOrigins []string `env:"CERBERO_CORS_ORIGINS" envSeparator:","`

	RateBurst  int `env:"CERBERO_RATE_BURST" envDefault:"20"`
	RatePerSec int `env:"CERBERO_RATE_PER_SEC" envDefault:"10"`

	MigrationsDir string `env:"CERBERO_MIGRATIONS_DIR" envDefault:"ops/migrations/sql"`
	SeedsDir      string `env:"CERBERO_SEEDS_DIR" envDefault:"ops/migrations/seeds"`
}

// Load parses configuration from the environment and validates required fields.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: CERBERO_JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("config: CERBERO_TOKEN_TTL must be positive")
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}
	return cfg, nil
}
