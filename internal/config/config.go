// Package config loads process configuration for the mailbox hosts from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

// Config is shared by the engine and editor binaries. Both processes must agree on
// Path, Capacity and Delimiter.
type Config struct {
	Path           string        `env:"MAILBOX_PATH" envDefault:"shared_memory.bin"`
	Capacity       int           `env:"MAILBOX_CAPACITY" envDefault:"4096"`
	Delimiter      string        `env:"MAILBOX_DELIMITER" envDefault:"##DELIM##"`
	TickInterval   time.Duration `env:"MAILBOX_TICK_INTERVAL" envDefault:"16ms"`
	OpenTimeout    time.Duration `env:"MAILBOX_OPEN_TIMEOUT" envDefault:"10s"`
	AdminAddr      string        `env:"MAILBOX_ADMIN_ADDR"`
	StaleAfter     time.Duration `env:"MAILBOX_STALE_AFTER" envDefault:"5s"`
	SkipSpaceCheck bool          `env:"MAILBOX_SKIP_SPACE_CHECK"`
	OTelEndpoint   string        `env:"MAILBOX_OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"MAILBOX_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: MAILBOX_PATH must not be empty")
	}
	if c.Capacity < mailbox.MinCapacity {
		return fmt.Errorf("config: MAILBOX_CAPACITY %d below minimum %d", c.Capacity, mailbox.MinCapacity)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: MAILBOX_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("config: MAILBOX_OPEN_TIMEOUT must not be negative, got %s", c.OpenTimeout)
	}
	mc := c.Mailbox(mailbox.RoleResponder, "config")
	if err := mailbox.VerifyConfig(mc); err != nil {
		return fmt.Errorf("config: MAILBOX_DELIMITER: %w", err)
	}
	return nil
}

// Mailbox returns the endpoint configuration for role.
func (c Config) Mailbox(role mailbox.Role, name string) *mailbox.Config {
	mc := mailbox.DefaultConfig()
	mc.Role = role
	mc.Name = name
	mc.Delimiter = c.Delimiter
	return mc
}
