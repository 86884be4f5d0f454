package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether another attempt under key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type memoryClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-key token bucket refilled at perMinute attempts a minute.
type Memory struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*memoryClient
}

var _ Limiter = (*Memory)(nil)

func NewMemory(perMinute int) *Memory {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Memory{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: make(map[string]*memoryClient),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, found := m.clients[key]
	if !found {
		c = &memoryClient{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow(), nil
}

// Cleanup forgets keys idle for longer than idle.
func (m *Memory) Cleanup(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.clients {
		if time.Since(c.lastSeen) > idle {
			delete(m.clients, key)
		}
	}
}

// RunCleanup calls Cleanup on every interval until ctx is done.
func (m *Memory) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(interval)
		}
	}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
