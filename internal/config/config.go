package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"scholarship_db"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBPath     string `env:"DB_PATH" envDefault:"scholarship.db"` // sqlite only

	// Token settings
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"supersecret_change_me"`
	RefreshJWTSecret string        `env:"REFRESH_JWT_SECRET"` // falls back to JWT_SECRET
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// Login account created at startup; usually the future admin.
	OperatorAddress  string `env:"OPERATOR_ADDRESS"`
	OperatorPassword string `env:"OPERATOR_PASSWORD"`

	// Scholarship
	AddressPrefix string `env:"ADDRESS_PREFIX"` // bech32 HRP; empty accepts any canonical identifier
	Reregister    string `env:"SCHOLARSHIP_REREGISTER" envDefault:"overwrite"`

	// Payout dispatch
	PayoutPollInterval time.Duration `env:"PAYOUT_POLL_INTERVAL" envDefault:"5s"`
	PayoutWebhookURL   string        `env:"PAYOUT_WEBHOOK_URL"`

	LoginRatePerMinute float64 `env:"LOGIN_RATE_PER_MINUTE" envDefault:"30"`
	LoginBurst         int     `env:"LOGIN_BURST" envDefault:"10"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RefreshJWTSecret == "" {
		cfg.RefreshJWTSecret = cfg.JWTSecret
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	return cfg, nil
}
