package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Refresh triggers, used as metric labels.
const (
	TriggerResolve    = "resolve"
	TriggerScheduled  = "scheduled"
	TriggerVisibility = "visibility"
	TriggerOnDemand   = "on_demand"
)

// expirySkew treats a token as expired slightly before its exp claim.
const expirySkew = 10 * time.Second

// DefaultRefreshTimeout bounds a shared refresh once it no longer follows any
// single caller's context.
const DefaultRefreshTimeout = 30 * time.Second

var NowTimeFunc = time.Now

// errSuperseded marks a refresh whose result arrived after the session was
// ended or replaced. The result is dropped and the newer state stands.
var errSuperseded = errors.New("session changed during refresh")

type Status int

const (
	StatusChecking Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "checking"
	}
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Admin           *Identity `json:"admin"`
	AccessToken     string    `json:"-"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsLoading       bool      `json:"isLoading"`
}

// Status derives the session status from the snapshot flags.
func (s Snapshot) Status() Status {
	switch {
	case s.IsLoading:
		return StatusChecking
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

type Option func(*Store)

func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) {
		s.scheduler = NewScheduler(d)
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

func WithTokenChecker(c TokenChecker) Option {
	return func(s *Store) {
		s.checker = c
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store holds one admin session in memory. The access token never leaves the
// process: nothing is written to disk or any other storage.
type Store struct {
	backend   Backend
	checker   TokenChecker
	observer  Observer
	scheduler *Scheduler
	flight    singleflight.Group

	refreshTimeout time.Duration

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu            sync.RWMutex
	identity      *Identity
	token         string
	expiry        time.Time
	authenticated bool
	loading       bool
	idle          chan struct{}
	generation    uint64
	closed        bool
}

// New creates an empty store in the checking state. Call ResolveStatus to find
// out whether the backend still honours a refresh credential.
func New(backend Backend, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:    backend,
		scheduler:      NewScheduler(DefaultRefreshInterval),
		refreshTimeout: DefaultRefreshTimeout,
		baseCtx:        ctx,
		cancelBase:     cancel,
		loading:        true,
		idle:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Scheduler() *Scheduler {
	return s.scheduler
}

// ResolveStatus asks the backend for a fresh access token. It reports whether
// the session is authenticated and never fails otherwise.
func (s *Store) ResolveStatus(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.setLoadingLocked(true)
	gen := s.generation
	s.mu.Unlock()

	if _, err := s.refresh(ctx, TriggerResolve); err != nil {
		if errors.Is(err, errSuperseded) {
			return s.IsAuthenticated()
		}
		log.Debug().Err(err).Msg("session could not be resolved")

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen {
			s.generation++
			s.clearLocked()
			s.scheduler.Stop()
		}
		s.setLoadingLocked(false)
		return s.authenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && s.authenticated {
		s.startSchedulerLocked()
	}
	return s.authenticated
}

// ValidToken returns the in-memory access token, refreshing once when there is
// none or it has expired. It never hands out a token the backend refused to renew.
func (s *Store) ValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, expiry, gen := s.token, s.expiry, s.generation
	s.mu.RUnlock()

	if token != "" && !s.expired(expiry) {
		return token, nil
	}

	token, err := s.refresh(ctx, TriggerOnDemand)
	if errors.Is(err, errSuperseded) {
		s.mu.RLock()
		token, expiry = s.token, s.expiry
		s.mu.RUnlock()
		if token != "" && !s.expired(expiry) {
			return token, nil
		}
	}
	if err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.token = ""
			s.expiry = time.Time{}
		}
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %w", apperrors.ErrNoValidToken, err)
	}
	return token, nil
}

// AuthHeader builds the headers for an authenticated backend call. When no
// valid token can be obtained the session is ended.
func (s *Store) AuthHeader(ctx context.Context) (http.Header, error) {
	token, err := s.ValidToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn().Err(err).Msg("no valid access token, logging out")
		s.Logout(ctx)
		return nil, err
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	return h, nil
}

// Refresh forces a token refresh and returns the new token.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	return s.refresh(ctx, TriggerOnDemand)
}

// Login installs the result of an explicit login and arms the refresh timer.
func (s *Store) Login(ctx context.Context, token string, identity *Identity) error {
	if token == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidToken, "[Session Login] empty access token")
	}
	expiry, err := s.check(ctx, token)
	if err != nil {
		return apperrors.Wrapf(err, "[Session Login] access token rejected")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	s.generation++
	s.token = token
	s.expiry = expiry
	s.identity = identity.clone()
	s.authenticated = true
	s.setLoadingLocked(false)
	s.startSchedulerLocked()
	s.mu.Unlock()

	if identity != nil {
		log.Info().Str("admin_id", string(identity.ID)).Str("role", string(identity.Role)).Msg("admin logged in")
	}
	return nil
}

// LoginWithCredentials authenticates against the backend and installs the result.
func (s *Store) LoginWithCredentials(ctx context.Context, email, password string) (*Identity, error) {
	grant, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Login(ctx, grant.AccessToken, grant.Identity); err != nil {
		return nil, err
	}
	return grant.Identity.clone(), nil
}

// Logout stops the refresh timer, tells the backend and clears the session.
// The backend call is best effort: the local state is cleared regardless.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.scheduler.Stop()
	s.clearLocked()
	s.setLoadingLocked(false)
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	if err := s.backend.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("backend logout failed")
	}
}

// OnVisibilityChange forces a refresh when the page becomes visible again on an
// authenticated session. A failed refresh ends the session.
func (s *Store) OnVisibilityChange(ctx context.Context, visible bool) error {
	if !visible || !s.IsAuthenticated() {
		return nil
	}
	if _, err := s.refresh(ctx, TriggerVisibility); err != nil {
		if errors.Is(err, errSuperseded) {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		log.Info().Err(err).Msg("refresh on visibility failed, logging out")
		s.Logout(ctx)
		return err
	}
	return nil
}

// OnUnload drops the access token. The identity is kept; the next ValidToken
// call refreshes.
func (s *Store) OnUnload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Admin:           s.identity.clone(),
		AccessToken:     s.token,
		IsAuthenticated: s.authenticated,
		IsLoading:       s.loading,
	}
}

func (s *Store) Status() Status {
	return s.Snapshot().Status()
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.clone()
}

// Wait blocks until the store has left the checking state or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the store down without calling the backend.
func (s *Store) Close() {
	s.cancelBase()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler.Stop()
	s.closed = true
	s.generation++
	s.token = ""
	s.expiry = time.Time{}
	s.setLoadingLocked(false)
}

type refreshResult struct {
	grant  Grant
	expiry time.Time
}

func (s *Store) refresh(ctx context.Context, trigger string) (string, error) {
	s.mu.RLock()
	gen, closed := s.generation, s.closed
	s.mu.RUnlock()
	if closed {
		return "", apperrors.ErrSessionClosed
	}

	// The shared call runs on the store's own context. A caller that gives up
	// only stops waiting for it.
	ch := s.flight.DoChan("refresh", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(s.baseCtx, s.refreshTimeout)
		defer cancel()

		grant, err := s.backend.Refresh(flightCtx)
		if err != nil {
			return nil, err
		}
		if grant.AccessToken == "" {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "refresh returned no access token")
		}
		expiry, err := s.check(flightCtx, grant.AccessToken)
		if err != nil {
			return nil, err
		}
		return refreshResult{grant: grant, expiry: expiry}, nil
	})

	var res refreshResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if s.observer != nil {
			s.observer.ObserveRefresh(trigger, r.Err)
		}
		if r.Err != nil {
			return "", r.Err
		}
		res = r.Val.(refreshResult)
	}
	if !s.apply(gen, res) {
		return "", errSuperseded
	}
	return res.grant.AccessToken, nil
}

// apply stores a refresh result unless the session was ended or replaced
// after the refresh started.
func (s *Store) apply(gen uint64, res refreshResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.generation != gen {
		return false
	}
	s.token = res.grant.AccessToken
	s.expiry = res.expiry
	if res.grant.Identity != nil {
		s.identity = res.grant.Identity.clone()
	}
	s.authenticated = true
	s.setLoadingLocked(false)
	return true
}

func (s *Store) check(ctx context.Context, token string) (time.Time, error) {
	if s.checker == nil {
		return time.Time{}, nil
	}
	return s.checker.Check(ctx, token)
}

func (s *Store) expired(expiry time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	return !NowTimeFunc().Add(expirySkew).Before(expiry)
}

// startSchedulerLocked arms the timer under s.mu so it cannot interleave with
// a logout. The timer loop never takes s.mu, so stopping it here is safe.
func (s *Store) startSchedulerLocked() {
	s.scheduler.Start(s.baseCtx, s.scheduledRefresh)
}

func (s *Store) scheduledRefresh(ctx context.Context) {
	if _, err := s.refresh(ctx, TriggerScheduled); err != nil {
		if ctx.Err() != nil || errors.Is(err, errSuperseded) {
			return
		}
		log.Warn().Err(err).Msg("scheduled token refresh failed, ending session")
		s.Logout(context.WithoutCancel(ctx))
	}
}

func (s *Store) clearLocked() {
	s.token = ""
	s.expiry = time.Time{}
	s.identity = nil
	s.authenticated = false
}

// setLoadingLocked flips the loading flag and the idle channel Wait blocks on.
func (s *Store) setLoadingLocked(loading bool) {
	if loading == s.loading {
		return
	}
	s.loading = loading
	if loading {
		s.idle = make(chan struct{})
	} else {
		close(s.idle)
	}
}
