// Package config loads the server configuration from environment variables
// and validates it so the process fails fast on bad settings.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/msomdec/password-validator/internal/persistence"
)

// Config is the root configuration of the server.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Policy   PolicyConfig   `envPrefix:"PASSWORD_"`

	// FingerprintKey keys the BLAKE2b hash stored in place of the password.
	FingerprintKey string `env:"FINGERPRINT_KEY,required" validate:"min=32,max=64"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"5" validate:"gte=0"`
	RateLimitBurst     float64 `env:"RATE_LIMIT_BURST" envDefault:"20" validate:"gte=1"`
}

// DatabaseConfig selects the persistence provider and connection target.
type DatabaseConfig struct {
	Provider string `env:"PROVIDER" envDefault:"sqlite" validate:"required"`
	DSN      string `env:"DSN" envDefault:"password-validator.db" validate:"required"`
}

// Options converts the settings into persistence options.
func (d DatabaseConfig) Options() persistence.Options {
	return persistence.Options{Provider: d.Provider, DSN: d.DSN}
}

// PolicyConfig holds the password rules.
type PolicyConfig struct {
	MinLength     int  `env:"MIN_LENGTH" envDefault:"8" validate:"gte=1"`
	MaxLength     int  `env:"MAX_LENGTH" envDefault:"128" validate:"gtefield=MinLength"`
	RequireUpper  bool `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower  bool `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireDigit  bool `env:"REQUIRE_DIGIT" envDefault:"true"`
	RequireSymbol bool `env:"REQUIRE_SYMBOL" envDefault:"true"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the database options.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := c.Database.Options().Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
