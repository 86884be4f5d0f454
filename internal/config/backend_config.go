package config

import (
	"strings"
	"time"
)

// BackendConfig describes the Fishmap API that issues and refreshes tokens.
type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetBackendJWKSURL() string
}

type Backend struct {
	BackendURL     string        `env:"BACKEND_URL" envDefault:"https://api-fitcalori.my.id"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// Optional. When set, access tokens are signature checked against this key set.
	JWKSURL string `env:"BACKEND_JWKS_URL"`
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return strings.TrimRight(b.BackendURL, "/")
}

func (b Backend) GetBackendTimeout() time.Duration {
	return b.BackendTimeout
}

func (b Backend) GetBackendJWKSURL() string {
	return b.JWKSURL
}
