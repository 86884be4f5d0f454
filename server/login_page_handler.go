package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/fishmapai/fishmap-gateway/gate"
	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/rs/zerolog/log"
)

const (
	msgLoginFailed     = "Login gagal. Silakan periksa kembali kredensial Anda."
	msgConnectionError = "Terjadi kesalahan koneksi. Silakan coba lagi."
	msgTooManyAttempts = "Terlalu banyak percobaan login. Silakan coba lagi dalam satu menit."
	msgInvalidRequest  = "Permintaan tidak valid."
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	From    string // where to go after a successful login
	Email   string // Preserve email on error
	Error   string
}

// LoginPageHandler displays the admin login form (GET /admin/login). Visitors
// whose session is already authenticated go straight to their target page.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := gate.SafeReturnPath(r.URL.Query().Get("from"), RouteAdminDashboard)

		sess, err := s.getOrCreateSession(w, r)
		if err != nil {
			log.Err(err).Msg("Failed to create browser session")
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}

		if sess.Store.Status() == session.StatusChecking {
			ctx, cancel := context.WithTimeout(r.Context(), s.config.GetGateWait())
			_ = sess.Store.Wait(ctx)
			cancel()
		}
		if sess.Store.IsAuthenticated() {
			http.Redirect(w, r, from, http.StatusSeeOther)
			return
		}

		renderTemplate(w, s.loginTmpl, http.StatusOK, LoginPageData{
			AppName: s.config.GetAppName(),
			From:    from,
			Email:   r.URL.Query().Get("email"),
			Error:   r.URL.Query().Get("error"),
		})
	}
}

// LoginSubmissionHandler processes the login form (POST /admin/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteAdminLogin, msgInvalidRequest)
			return
		}

		data := LoginPageData{
			AppName: s.config.GetAppName(),
			From:    gate.SafeReturnPath(r.FormValue("from"), RouteAdminDashboard),
			Email:   strings.TrimSpace(r.FormValue("email")),
		}
		password := r.FormValue("password")

		allowed, err := s.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			log.Warn().Err(err).Msg("login rate limiter unavailable")
		}
		if !allowed {
			s.metrics.LoginRateLimited()
			data.Error = msgTooManyAttempts
			renderTemplate(w, s.loginTmpl, http.StatusTooManyRequests, data)
			return
		}

		sess, err := s.getOrCreateSession(w, r)
		if err != nil {
			log.Err(err).Msg("Failed to create browser session")
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}

		identity, err := sess.Store.LoginWithCredentials(r.Context(), data.Email, password)
		if err != nil {
			status := http.StatusUnauthorized
			if apperrors.KindOf(err) == apperrors.KindNetwork {
				status = http.StatusBadGateway
			}
			data.Error = loginErrorMessage(err)
			renderTemplate(w, s.loginTmpl, status, data)
			return
		}

		log.Info().
			Str("admin_id", string(identity.ID)).
			Str("role", string(identity.Role)).
			Str("session_id", sess.ID).
			Msg("admin logged in")
		redirectSuccess(w, r, data.From)
	}
}

// LogoutHandler ends the admin session upstream and forgets the browser.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.sessionFromRequest(r); ok {
			sess.Store.Logout(r.Context())
			s.endSession(w, r, sess)
		}
		redirectSuccess(w, r, RouteAdminLogin)
	}
}

// loginErrorMessage prefers the backend's own message.
func loginErrorMessage(err error) string {
	var apiErr *apperrors.APIError
	if !apperrors.As(err, &apiErr) {
		return msgLoginFailed
	}
	if apiErr.Kind == apperrors.KindNetwork {
		return msgConnectionError
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return msgLoginFailed
}
