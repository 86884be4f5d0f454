package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/fishmapai/fishmap-gateway/apiclient"
	"github.com/fishmapai/fishmap-gateway/gate"
	"github.com/fishmapai/fishmap-gateway/internal/config"
	"github.com/fishmapai/fishmap-gateway/internal/metrics"
	"github.com/fishmapai/fishmap-gateway/ratelimit"
	"github.com/fishmapai/fishmap-gateway/server/loginsession"
	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/fishmapai/fishmap-gateway/token"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      *apiclient.Client
	backend  *url.URL
	sessions loginsession.Repo
	guard    *gate.Guard
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	checker  session.TokenChecker
	proxy    *httputil.ReverseProxy
	cors     *cors.Cors

	loginTmpl *template.Template
	pageTmpl  *template.Template
}

type Option func(*Server)

func WithSessionRepo(repo loginsession.Repo) Option {
	return func(s *Server) { s.sessions = repo }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTokenChecker overrides how access tokens are inspected. By default the
// JWKS in BACKEND_JWKS_URL is used when set, and only the exp claim otherwise.
func WithTokenChecker(c session.TokenChecker) Option {
	return func(s *Server) { s.checker = c }
}

// WithAPIClient replaces the backend client every browser session forks from.
func WithAPIClient(api *apiclient.Client) Option {
	return func(s *Server) { s.api = api }
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	backend, err := url.Parse(cfg.GetBackendURL())
	if err != nil || backend.Host == "" {
		return nil, fmt.Errorf("[Server New] invalid backend URL %q", cfg.GetBackendURL())
	}
	s.backend = backend

	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.sessions == nil {
		s.sessions = loginsession.NewInMemoryLoginSessionRepo()
	}
	if s.api == nil {
		s.api, err = apiclient.New(cfg.GetBackendURL(),
			apiclient.WithTimeout(cfg.GetBackendTimeout()),
			apiclient.WithObserver(s.metrics),
		)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create backend client: %w", err)
		}
	}
	if s.checker == nil {
		if jwksURL := cfg.GetBackendJWKSURL(); jwksURL != "" {
			s.checker = token.NewRemoteInspector(context.Background(), jwksURL)
		} else {
			s.checker = token.NewInspector()
		}
	}
	if s.limiter == nil {
		if redisURL := cfg.GetRedisURL(); redisURL != "" {
			s.limiter, err = ratelimit.NewRedis(redisURL, cfg.GetLoginRateLimit())
			if err != nil {
				return nil, fmt.Errorf("[Server New] failed to create login limiter: %w", err)
			}
		} else {
			s.limiter = ratelimit.NewMemory(cfg.GetLoginRateLimit())
		}
	}

	s.guard = gate.NewGuard(s.storeForRequest,
		gate.WithWait(cfg.GetGateWait()),
		gate.WithLoginPath(RouteAdminLogin),
		gate.WithObserver(s.metrics),
	)
	s.cors = cors.New(cors.Options{
		AllowedOrigins:   cfg.GetAllowedOrigins().List(),
		AllowedMethods:   cfg.GetAllowedMethods(),
		AllowedHeaders:   cfg.GetAllowedHeaders(),
		AllowCredentials: true,
		MaxAge:           86400,
	})
	s.proxy = s.newAPIProxy()

	if s.loginTmpl, err = ParseTemplate("login.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse login template: %w", err)
	}
	if s.pageTmpl, err = ParseTemplate("page.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse page template: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Sessions exposes the browser session repository.
func (s *Server) Sessions() loginsession.Repo {
	return s.sessions
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Start runs the background housekeeping until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.RunJanitor(ctx)
	if m, ok := s.limiter.(*ratelimit.Memory); ok {
		go m.RunCleanup(ctx, s.config.GetIdleTimeout())
	}
}

// Close tears down every browser session without logging it out upstream, so
// the refresh cookies stay valid across a restart.
func (s *Server) Close() {
	for _, sess := range s.sessions.List() {
		sess.Store.Close()
		_ = s.sessions.Delete(sess.ID)
	}
	s.metrics.SetActiveSessions(0)
	if r, ok := s.limiter.(*ratelimit.Redis); ok {
		if err := r.Close(); err != nil {
			log.Err(err).Msg("failed to close redis limiter")
		}
	}
}

const (
	green   = "\033[32m"
	blue    = "\033[34m"
	cyan    = "\033[36m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	gray    = "\033[90m"
	reset   = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+reset, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
