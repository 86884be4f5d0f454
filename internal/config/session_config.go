package config

import "time"

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetAccessTokenTTL() time.Duration
	GetIdleTimeout() time.Duration
	GetGateWait() time.Duration
	GetSessionCookieName() string
}

type Session struct {
	// Access tokens live 15 minutes; refreshing at 14 leaves a minute of slack.
	RefreshInterval time.Duration `env:"SESSION_REFRESH_INTERVAL" envDefault:"14m"`
	AccessTokenTTL  time.Duration `env:"SESSION_ACCESS_TOKEN_TTL" envDefault:"15m"`
	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	GateWait        time.Duration `env:"GATE_WAIT" envDefault:"2s"`
	CookieName      string        `env:"SESSION_COOKIE_NAME" envDefault:"fishmap_sid"`
}

var _ SessionConfig = Session{}

func (s Session) GetRefreshInterval() time.Duration {
	return s.RefreshInterval
}

func (s Session) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenTTL
}

func (s Session) GetIdleTimeout() time.Duration {
	return s.IdleTimeout
}

func (s Session) GetGateWait() time.Duration {
	return s.GateWait
}

func (s Session) GetSessionCookieName() string {
	return s.CookieName
}
