package gate

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateChecking State = iota
	StateAuthenticated
	StateUnauthenticated
	StateRoleMismatch
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRoleMismatch:
		return "role_mismatch"
	default:
		return "checking"
	}
}

// Decide maps a session snapshot onto what a protected page should show. An
// empty requiredRole admits any authenticated admin.
func Decide(snap session.Snapshot, requiredRole session.Role) State {
	switch {
	case snap.IsLoading:
		return StateChecking
	case !snap.IsAuthenticated:
		return StateUnauthenticated
	case requiredRole != "" && !snap.Admin.HasRole(requiredRole):
		return StateRoleMismatch
	default:
		return StateAuthenticated
	}
}

const (
	DefaultLoginPath = "/admin/login"
	DefaultWait      = 2 * time.Second
)

// StoreLookup finds the session store for a request. It returns nil when the
// browser has no session yet.
type StoreLookup func(r *http.Request) *session.Store

type Observer interface {
	ObserveGate(state string)
}

type Guard struct {
	lookup    StoreLookup
	wait      time.Duration
	loginPath string
	observer  Observer
}

type Option func(*Guard)

func WithWait(d time.Duration) Option {
	return func(g *Guard) { g.wait = d }
}

func WithLoginPath(path string) Option {
	return func(g *Guard) { g.loginPath = path }
}

func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

func NewGuard(lookup StoreLookup, opts ...Option) *Guard {
	g := &Guard{
		lookup:    lookup,
		wait:      DefaultWait,
		loginPath: DefaultLoginPath,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require protects a page. It never calls the backend: it only reads the
// store's resolved state, waiting briefly for a resolution in progress.
func (g *Guard) Require(role session.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state, snap := g.evaluate(r, role)
			if g.observer != nil {
				g.observer.ObserveGate(state.String())
			}

			switch state {
			case StateChecking:
				renderLoading(w)
			case StateUnauthenticated:
				http.Redirect(w, r, LoginRedirect(g.loginPath, r.URL), http.StatusSeeOther)
			case StateRoleMismatch:
				log.Info().
					Str("path", r.URL.Path).
					Str("required_role", string(role)).
					Msg("admin role does not match")
				renderAccessDenied(w, role)
			default:
				next(w, r.WithContext(WithIdentity(r.Context(), snap.Admin)))
			}
		}
	}
}

func (g *Guard) evaluate(r *http.Request, role session.Role) (State, session.Snapshot) {
	store := g.lookup(r)
	if store == nil {
		return StateUnauthenticated, session.Snapshot{}
	}

	if store.Status() == session.StatusChecking && g.wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), g.wait)
		_ = store.Wait(ctx)
		cancel()
	}

	snap := store.Snapshot()
	return Decide(snap, role), snap
}

// LoginRedirect builds the login URL carrying the originally requested page.
func LoginRedirect(loginPath string, from *url.URL) string {
	if from == nil || from.Path == "" {
		return loginPath
	}
	target := from.Path
	if from.RawQuery != "" {
		target += "?" + from.RawQuery
	}
	return loginPath + "?from=" + url.QueryEscape(target)
}

// SafeReturnPath accepts only local absolute paths as a post-login target.
func SafeReturnPath(from, fallback string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return fallback
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return from
}

type contextKey string

const identityKey contextKey = "admin_identity"

func WithIdentity(ctx context.Context, identity *session.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the admin the gate let through.
func IdentityFromContext(ctx context.Context) (*session.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*session.Identity)
	return identity, ok && identity != nil
}
