package config

import (
	"fmt"
	"time"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWT returns the token settings for the status API.
// JWT_SECRET is required; the expiration defaults to 24 hours.
func (c *Config) JWT() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:          c.JWTSecret,
		ExpirationHours: c.JWTExpirationHours,
	}
	if cfg.ExpirationHours == 0 {
		cfg.ExpirationHours = DefaultJWTExpiryHrs
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Expiration is the lifetime of issued tokens
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
