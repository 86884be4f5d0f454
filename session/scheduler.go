package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshInterval renews a 15 minute access token a minute early.
const DefaultRefreshInterval = 14 * time.Minute

// Scheduler runs a tick function on a fixed interval. At most one timer loop
// is alive: Start stops and waits for the previous loop before replacing it.
type Scheduler struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Int32
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Scheduler{interval: interval}
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start arms the timer. Each tick runs in its own goroutine so a slow tick
// never holds the timer loop and a tick may call Stop.
func (s *Scheduler) Start(parent context.Context, tick func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.running.Add(1)
	go s.loop(ctx, done, tick)
}

// Stop cancels the timer and waits for its loop to exit. It is safe to call
// when nothing is armed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Active reports whether a timer is armed.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Running is the number of live timer loops. It never exceeds one.
func (s *Scheduler) Running() int {
	return int(s.running.Load())
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, tick func(context.Context)) {
	defer close(done)
	defer s.running.Add(-1)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go tick(ctx)
		}
	}
}
