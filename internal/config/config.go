package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CorsConfig
	BackendConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	Backend
	Session
	Security
}

// Load reads the configuration from the environment. Every value has a default
// so an empty environment yields a usable development setup.
func Load() (Config, error) {
	c := mainConfig{}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config Load] failed to parse environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return c, nil
}

func (c mainConfig) validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("SESSION_REFRESH_INTERVAL must be positive")
	}
	if c.AccessTokenTTL > 0 && c.RefreshInterval >= c.AccessTokenTTL {
		return fmt.Errorf("SESSION_REFRESH_INTERVAL (%s) must be shorter than SESSION_ACCESS_TOKEN_TTL (%s)", c.RefreshInterval, c.AccessTokenTTL)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}
