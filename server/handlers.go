package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fishmapai/fishmap-gateway/ratelimit"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

const msgSessionExpired = "Sesi Anda telah berakhir"

type apiErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

// writeSessionExpired is what admin pages act on: any 401 with this code sends
// the browser back to the login page.
func writeSessionExpired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, apiErrorResponse{Error: msgSessionExpired, Code: "SESSION_EXPIRED"})
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Limiter  string `json:"limiter"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Sessions: s.sessions.Len(), Limiter: "memory"}
		status := http.StatusOK

		if rl, ok := s.limiter.(*ratelimit.Redis); ok {
			resp.Limiter = "redis"
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rl.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("redis limiter unreachable")
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, resp)
	}
}
