package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fishmapai/fishmap-gateway/adminapi"
	"github.com/fishmapai/fishmap-gateway/server/loginsession"
	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SetLoginSessionCookie binds the browser to its session. A maxAge of -1
// deletes the cookie; 0 keeps it for the browser session.
func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, sessionID string, r *http.Request, maxAge int) {
	isSecure := s.config.GetSecureCookies() || getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// sessionFromRequest looks up the browser's session without creating one.
func (s *Server) sessionFromRequest(r *http.Request) (loginsession.Session, bool) {
	id := s.sessionIDFromRequest(r)
	if id == "" {
		return loginsession.Session{}, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return loginsession.Session{}, false
	}
	return sess, true
}

// storeForRequest is the gate's lookup. It never creates a session.
func (s *Server) storeForRequest(r *http.Request) *session.Store {
	sess, ok := s.sessionFromRequest(r)
	if !ok {
		return nil
	}
	return sess.Store
}

// getOrCreateSession returns the browser's session, creating one (and setting
// the cookie) on first contact. A new session resolves its status from the
// backend refresh cookie in the background.
func (s *Server) getOrCreateSession(w http.ResponseWriter, r *http.Request) (loginsession.Session, error) {
	if sess, ok := s.sessionFromRequest(r); ok {
		return sess, nil
	}

	admin := adminapi.New(s.api.Fork())
	store := session.New(admin,
		session.WithRefreshInterval(s.config.GetRefreshInterval()),
		session.WithRefreshTimeout(s.config.GetBackendTimeout()),
		session.WithTokenChecker(s.checker),
		session.WithObserver(s.metrics),
	)

	now := time.Now()
	sess := loginsession.Session{
		ID:        uuid.NewString(),
		Store:     store,
		Admin:     admin,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := s.sessions.Upsert(sess.ID, sess); err != nil {
		store.Close()
		return loginsession.Session{}, err
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	s.SetLoginSessionCookie(w, sess.ID, r, 0)

	go store.ResolveStatus(context.WithoutCancel(r.Context()))

	log.Debug().Str("session_id", sess.ID).Msg("browser session created")
	return sess, nil
}

// endSession closes the store and forgets the browser.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, sess loginsession.Session) {
	sess.Store.Close()
	if err := s.sessions.Delete(sess.ID); err != nil {
		log.Err(err).Msg("failed to delete browser session")
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	s.SetLoginSessionCookie(w, "", r, -1)
}

// clientIP is the rate limit key. X-Forwarded-For is honoured for the first hop only.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	fullPath := path + sep + "error=" + url.QueryEscape(errorMsg)

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
