package config

import (
	"fmt"
	"os"
)

// DefaultJWTExpirationHours is the token lifetime used when none is configured.
const DefaultJWTExpirationHours = 24

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string `yaml:"secret"`
	ExpirationHours int    `yaml:"expiration_hours"`
	Issuer          string `yaml:"issuer"`
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	config := &JWTConfig{}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *JWTConfig) applyEnv(lookup LookupFunc) error {
	setString(lookup, &c.Secret, "JWT_SECRET")
	setString(lookup, &c.Issuer, "JWT_ISSUER")
	return setInt(lookup, &c.ExpirationHours, "JWT_EXPIRATION_HOURS")
}

// normalize fills defaults and validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if c.ExpirationHours == 0 {
		c.ExpirationHours = DefaultJWTExpirationHours
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.Issuer == "" {
		c.Issuer = "postdesk"
	}
	return nil
}
