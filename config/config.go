// Package config - service runtime configuration
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variable names read by FromEnv
const (
	// EnvEncryptionKey base64 encoded 32 byte field encryption key
	EnvEncryptionKey = "CHRONICLE_ENCRYPTION_KEY"
	// EnvTokenSecret session token HMAC signing secret
	EnvTokenSecret = "CHRONICLE_TOKEN_SECRET"
	// EnvTokenIssuer optional issuer claim for session tokens
	EnvTokenIssuer = "CHRONICLE_TOKEN_ISSUER"
	// EnvAccessTTL access token lifetime, Go duration syntax
	EnvAccessTTL = "CHRONICLE_ACCESS_TTL"
	// EnvRefreshTTL refresh token lifetime, Go duration syntax
	EnvRefreshTTL = "CHRONICLE_REFRESH_TTL"
)

// Config service runtime configuration
type Config struct {
	// EncryptionKeyBase64 base64 encoded 32 byte field encryption key
	EncryptionKeyBase64 string `validate:"required,base64"`
	// TokenSigningSecret session token HMAC signing secret
	TokenSigningSecret string `validate:"required,min=32"`
	// TokenIssuer optional issuer claim stamped on session tokens
	TokenIssuer string
	// AccessTTL access token lifetime
	AccessTTL time.Duration `validate:"required"`
	// RefreshTTL refresh token lifetime, must exceed AccessTTL
	RefreshTTL time.Duration `validate:"required,gtfield=AccessTTL"`
}

/*
Default runtime configuration with recommended token lifetimes.

The secrets have no defaults and must be filled in by the caller.

	@returns default configuration
*/
func Default() Config {
	return Config{
		AccessTTL:  time.Minute * 15,
		RefreshTTL: time.Hour * 24 * 7,
	}
}

/*
FromEnv build configuration from the process environment.

Secrets are required. Token lifetimes fall back to the defaults when the
corresponding variable is unset.

	@returns validated configuration
*/
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.EncryptionKeyBase64 = os.Getenv(EnvEncryptionKey)
	cfg.TokenSigningSecret = os.Getenv(EnvTokenSecret)
	cfg.TokenIssuer = os.Getenv(EnvTokenIssuer)

	if raw := os.Getenv(EnvAccessTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s unparsable [%w]", EnvAccessTTL, err)
		}
		cfg.AccessTTL = parsed
	}
	if raw := os.Getenv(EnvRefreshTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s unparsable [%w]", EnvRefreshTTL, err)
		}
		cfg.RefreshTTL = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
Validate verify the configuration is internally consistent

	@returns nil if the configuration is usable
*/
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(&c); err != nil {
		return fmt.Errorf("service configuration is not valid [%w]", err)
	}
	return nil
}
