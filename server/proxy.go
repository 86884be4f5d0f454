package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"

	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/fishmapai/fishmap-gateway/server/loginsession"
	"github.com/rs/zerolog/log"
)

type (
	authHeaderKey   struct{}
	proxySessionKey struct{}
	proxyPathKey    struct{}
)

// errUpstreamUnauthorized marks a proxied call the backend refused with 401.
var errUpstreamUnauthorized = fmt.Errorf("backend rejected the access token: %w", apperrors.ErrSessionExpired)

// newAPIProxy forwards /admin/api/* to the backend with the session's bearer
// token in place of the browser's cookies.
func (s *Server) newAPIProxy() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = "/" + strings.TrimPrefix(pr.In.URL.Path, RouteAdminAPI)
			pr.Out.URL.RawPath = ""
			pr.SetURL(s.backend)
			pr.SetXForwarded()

			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			if header, ok := pr.In.Context().Value(authHeaderKey{}).(http.Header); ok {
				pr.Out.Header.Set("Authorization", header.Get("Authorization"))
			}
			if id := requestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(headerRequestID, id)
			}
		},
		Transport: s.api.HTTPClient().Transport,
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			if resp.StatusCode == http.StatusUnauthorized {
				return errUpstreamUnauthorized
			}
			return nil
		},
		ErrorHandler: s.proxyErrorHandler,
	}
}

// APIProxyHandler attaches the bearer token. A browser without a valid token
// gets the session expired response without reaching the backend.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFromRequest(r)
		if !ok {
			writeSessionExpired(w)
			return
		}

		header, err := sess.Store.AuthHeader(r.Context())
		if err != nil {
			log.Debug().Err(err).Str("session_id", sess.ID).Msg("no access token for proxied call")
			writeSessionExpired(w)
			return
		}

		// The outgoing request loses the browser's cookies and path, so the
		// error handler reads the session and the inbound path from ctx.
		ctx := context.WithValue(r.Context(), authHeaderKey{}, header)
		ctx = context.WithValue(ctx, proxySessionKey{}, sess)
		ctx = context.WithValue(ctx, proxyPathKey{}, r.URL.Path)
		s.proxy.ServeHTTP(w, r.WithContext(ctx))
	}
}

// proxyErrorHandler is the single place where an upstream 401 turns into a
// logout.
func (s *Server) proxyErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	path, _ := r.Context().Value(proxyPathKey{}).(string)
	if errors.Is(err, errUpstreamUnauthorized) {
		if sess, ok := r.Context().Value(proxySessionKey{}).(loginsession.Session); ok {
			sess.Store.Logout(context.WithoutCancel(r.Context()))
			log.Info().Str("session_id", sess.ID).Str("path", path).Msg("backend ended the admin session")
		}
		writeSessionExpired(w)
		return
	}

	log.Err(err).Str("path", path).Str("request_id", requestID(r.Context())).Msg("proxied call failed")
	writeJSON(w, http.StatusBadGateway, apiErrorResponse{Error: msgConnectionError, Code: "BACKEND_UNAVAILABLE"})
}
