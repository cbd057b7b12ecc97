package auth

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported HMAC signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures bearer-token authentication of the HTTP API.
type Config struct {
	// Enabled controls whether the API requires a bearer token.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Secret is the shared HMAC key.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `yaml:"method" mapstructure:"method"`

	// Issuer is the expected "iss" claim (optional).
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// Audience is the expected "aud" claim (optional).
	Audience string `yaml:"audience" mapstructure:"audience"`

	// TokenTTL is the lifetime of issued tokens (default: 1h).
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`

	// SkipPaths are served without a token.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Secret == "" {
		return errors.New("auth: secret is required when auth is enabled")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("auth: secret must be at least 16 bytes (got: %d)", len(c.Secret))
	}
	if c.signingMethod() == nil {
		return fmt.Errorf("auth: unsupported signing method: %s", c.Method)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("auth: token_ttl must not be negative (got: %s)", c.TokenTTL)
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}
