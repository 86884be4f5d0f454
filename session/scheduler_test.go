package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/stretchr/testify/require"
)

func TestScheduler_StartReplacesPreviousTimer(t *testing.T) {
	s := session.NewScheduler(time.Hour)
	require.False(t, s.Active())

	for i := 0; i < 5; i++ {
		s.Start(context.Background(), func(context.Context) {})
		require.True(t, s.Active())
		require.Equal(t, 1, s.Running())
	}

	s.Stop()
	require.False(t, s.Active())
	require.Zero(t, s.Running())

	// stopping twice is harmless
	s.Stop()
	require.Zero(t, s.Running())
}

func TestScheduler_Ticks(t *testing.T) {
	var ticks atomic.Int32
	s := session.NewScheduler(5 * time.Millisecond)
	s.Start(context.Background(), func(context.Context) { ticks.Add(1) })
	defer s.Stop()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestScheduler_TickMayStopItsScheduler(t *testing.T) {
	s := session.NewScheduler(5 * time.Millisecond)
	s.Start(context.Background(), func(context.Context) { s.Stop() })

	require.Eventually(t, func() bool { return !s.Active() && s.Running() == 0 }, time.Second, time.Millisecond)
}

func TestScheduler_DefaultInterval(t *testing.T) {
	require.Equal(t, session.DefaultRefreshInterval, session.NewScheduler(0).Interval())
	require.Equal(t, 14*time.Minute, session.DefaultRefreshInterval)
}

func TestScheduler_RecreatedStoresLeaveNoTimers(t *testing.T) {
	backend := newFakeBackend()
	var schedulers []*session.Scheduler

	for i := 0; i < 5; i++ {
		store := session.New(backend, session.WithRefreshInterval(time.Hour))
		require.NoError(t, store.Login(context.Background(), "tok", backend.identity))
		require.NoError(t, store.Login(context.Background(), "tok-again", backend.identity))
		require.Equal(t, 1, store.Scheduler().Running())
		schedulers = append(schedulers, store.Scheduler())
		store.Close()
	}

	for _, s := range schedulers {
		require.Zero(t, s.Running())
	}
}
