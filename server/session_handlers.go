package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/rs/zerolog/log"
)

type sessionStatusResponse struct {
	Status          string            `json:"status"`
	IsAuthenticated bool              `json:"isAuthenticated"`
	IsLoading       bool              `json:"isLoading"`
	Admin           *session.Identity `json:"admin,omitempty"`
}

func newSessionStatusResponse(snap session.Snapshot) sessionStatusResponse {
	return sessionStatusResponse{
		Status:          snap.Status().String(),
		IsAuthenticated: snap.IsAuthenticated,
		IsLoading:       snap.IsLoading,
		Admin:           snap.Admin,
	}
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// SessionStatusHandler reports the browser session's state. The access token
// never leaves the gateway.
func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusOK, sessionStatusResponse{Status: session.StatusUnauthenticated.String()})
			return
		}
		writeJSON(w, http.StatusOK, newSessionStatusResponse(sess.Store.Snapshot()))
	}
}

// VisibilityHandler forwards document.visibilitychange. Becoming visible while
// authenticated forces a refresh; a failed refresh ends the session.
func (s *Server) VisibilityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFromRequest(r)
		if !ok {
			writeSessionExpired(w)
			return
		}

		var req visibilityRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Visible == nil {
			writeJSON(w, http.StatusBadRequest, apiErrorResponse{Error: msgInvalidRequest, Code: "INVALID_REQUEST"})
			return
		}

		if err := sess.Store.OnVisibilityChange(r.Context(), *req.Visible); err != nil {
			log.Debug().Err(err).Str("session_id", sess.ID).Msg("refresh on visibility failed")
			writeSessionExpired(w)
			return
		}
		writeJSON(w, http.StatusOK, newSessionStatusResponse(sess.Store.Snapshot()))
	}
}

// UnloadHandler is the sendBeacon target for pagehide/beforeunload. It drops
// the in-memory token only.
func (s *Server) UnloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.sessionFromRequest(r); ok {
			sess.Store.OnUnload()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ProfileHandler fetches the admin profile from the backend with the
// session's bearer token.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFromRequest(r)
		if !ok {
			writeSessionExpired(w)
			return
		}

		profile, err := sess.Admin.Profile(r.Context(), sess.Store)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, profile)
		case apperrors.Is(err, apperrors.ErrNoValidToken) || apperrors.IsAuthFailure(err):
			sess.Store.Logout(r.Context())
			writeSessionExpired(w)
		default:
			log.Err(err).Str("session_id", sess.ID).Msg("failed to load admin profile")
			writeJSON(w, http.StatusBadGateway, apiErrorResponse{Error: msgConnectionError, Code: "BACKEND_UNAVAILABLE"})
		}
	}
}
