package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultSessionHours = 12
	minLinkSecretLen    = 16
)

// JWTConfig holds the secrets for session tokens and interview links.
type JWTConfig struct {
	SessionSecret   string
	LinkSecret      string
	ExpirationHours int
}

// NewJWTConfig reads SESSION_SECRET (required), LINK_SECRET (falls back to
// the session secret) and SESSION_EXPIRATION_HOURS (default 12).
func NewJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		ExpirationHours: defaultSessionHours,
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required but not set")
	}
	cfg.LinkSecret = EnvString("LINK_SECRET", cfg.SessionSecret)

	if raw := os.Getenv("SESSION_EXPIRATION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_EXPIRATION_HOURS: %w", err)
		}
		cfg.ExpirationHours = hours
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks secret lengths and the session lifetime.
func (c *JWTConfig) Validate() error {
	switch {
	case c.SessionSecret == "":
		return fmt.Errorf("SESSION_SECRET cannot be empty")
	case len(c.LinkSecret) < minLinkSecretLen:
		return fmt.Errorf("LINK_SECRET must be at least %d characters", minLinkSecretLen)
	case c.ExpirationHours < 1:
		return fmt.Errorf("SESSION_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
