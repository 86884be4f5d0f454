package token

import (
	"sync"
	"time"
)

// RevokedCache remembers access token ids that were invalidated by a logout
// until the tokens would have expired anyway.
type RevokedCache interface {
	Add(jti string, exp time.Time)
	IsRevoked(jti string) bool
	Cleanup()
}

type InMemoryRevokedCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func NewInMemoryRevokedCache() *InMemoryRevokedCache {
	return &InMemoryRevokedCache{
		revoked: make(map[string]time.Time),
	}
}

func (c *InMemoryRevokedCache) Add(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *InMemoryRevokedCache) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

func (c *InMemoryRevokedCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := NowTimeFunc()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
