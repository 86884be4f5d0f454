package config

type SecurityConfig interface {
	GetLoginRateLimit() int
	GetRedisURL() string
	GetSecureCookies() bool
}

type Security struct {
	LoginRateLimit int    `env:"LOGIN_RATE_LIMIT" envDefault:"10"` // attempts per minute per client
	RedisURL       string `env:"REDIS_URL"`
	SecureCookies  bool   `env:"SECURE_COOKIES" envDefault:"false"`
}

var _ SecurityConfig = Security{}

func (s Security) GetLoginRateLimit() int {
	return s.LoginRateLimit
}

// GetRedisURL is empty when login counters should stay in process memory.
func (s Security) GetRedisURL() string {
	return s.RedisURL
}

func (s Security) GetSecureCookies() bool {
	return s.SecureCookies
}
