package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const minJanitorInterval = time.Second

// RunJanitor expires idle browser sessions until ctx is done.
func (s *Server) RunJanitor(ctx context.Context) {
	interval := s.config.GetIdleTimeout() / 2
	if interval < minJanitorInterval {
		interval = minJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.ExpireIdleSessions(ctx, now); n > 0 {
				log.Info().Int("expired", n).Int("remaining", s.sessions.Len()).Msg("idle browser sessions expired")
			}
		}
	}
}

// ExpireIdleSessions logs out and closes every session not seen within the
// idle timeout, so no refresh timer outlives its browser.
func (s *Server) ExpireIdleSessions(ctx context.Context, now time.Time) int {
	idle := s.sessions.IdleSince(now.Add(-s.config.GetIdleTimeout()))
	for _, sess := range idle {
		logoutCtx, cancel := context.WithTimeout(ctx, s.config.GetBackendTimeout())
		sess.Store.Logout(logoutCtx)
		cancel()
		sess.Store.Close()
		if err := s.sessions.Delete(sess.ID); err != nil {
			log.Err(err).Str("session_id", sess.ID).Msg("failed to delete idle session")
		}
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	return len(idle)
}
