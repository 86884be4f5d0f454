package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/fishmapai/fishmap-gateway/token"
)

// Routes served by the fake backend.
const (
	RouteAdminLogin   = "/admin/login"
	RouteAdminToken   = "/admin/token"
	RouteAdminLogout  = "/admin/logout"
	RouteAdminProfile = "/admin/profile"
	RouteUsers        = "/users"
	RouteLogin        = "/login"
	RouteLogout       = "/logout"
	RouteVerifyOTP    = "/verify-otp"
	RouteResendOTP    = "/resend-otp"
	RouteJWKS         = "/.well-known/jwks.json"
)

// Refresh cookies. They are httpOnly: clients never read them.
const (
	AdminRefreshCookie = "adminRefreshToken"
	UserRefreshCookie  = "refreshToken"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	otpTTL            = 5 * time.Minute
)

type config struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	keyPair    *token.KeyPair
}

type Option func(*config)

func WithAccessTTL(d time.Duration) Option {
	return func(c *config) { c.accessTTL = d }
}

func WithRefreshTTL(d time.Duration) Option {
	return func(c *config) { c.refreshTTL = d }
}

func WithIssuer(issuer string) Option {
	return func(c *config) { c.issuer = issuer }
}

func WithKeyPair(kp *token.KeyPair) Option {
	return func(c *config) { c.keyPair = kp }
}

// Server is an in-memory stand-in for the Fishmap backend API.
type Server struct {
	mux      *http.ServeMux
	accounts AccountRepo
	refresh  *RefreshManager
	issuer   *token.Issuer
	signer   *token.KeyPairSigner

	mu    sync.Mutex
	calls map[string]int
}

func New(options ...Option) (*Server, error) {
	cfg := &config{
		issuer:     "fishmap-fakeapi",
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range options {
		opt(cfg)
	}

	if cfg.keyPair == nil {
		kp, err := token.GenerateRSAKeyPair("fakeapi-1", 2048)
		if err != nil {
			return nil, err
		}
		cfg.keyPair = kp
	}

	signer := token.NewKeyPairSigner(cfg.keyPair)
	s := &Server{
		mux:      http.NewServeMux(),
		accounts: NewInMemoryAccountRepo(),
		refresh:  NewRefreshManager(cfg.refreshTTL),
		issuer:   token.NewIssuer(cfg.issuer, cfg.accessTTL, signer, token.NewInMemoryRevokedCache()),
		signer:   signer,
		calls:    make(map[string]int),
	}
	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	s.handle("POST "+RouteAdminLogin, s.AdminLoginHandler())
	s.handle("GET "+RouteAdminToken, s.AdminTokenHandler())
	s.handle("DELETE "+RouteAdminLogout, s.AdminLogoutHandler())
	s.handle("GET "+RouteAdminProfile, s.AdminProfileHandler())

	s.handle("POST "+RouteUsers, s.RegisterHandler())
	s.handle("GET "+RouteUsers, s.UserProfileHandler())
	s.handle("POST "+RouteLogin, s.UserLoginHandler())
	s.handle("DELETE "+RouteLogout, s.UserLogoutHandler())
	s.handle("POST "+RouteVerifyOTP, s.VerifyOTPHandler())
	s.handle("POST "+RouteResendOTP, s.ResendOTPHandler())

	s.handle("GET "+RouteJWKS, s.JWKSHandler())
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		handler(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Calls reports how often an endpoint was hit, e.g. Calls("GET /admin/token").
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) Issuer() *token.Issuer {
	return s.issuer
}

// RevokeRefreshTokens invalidates every refresh cookie, as if they had all expired.
func (s *Server) RevokeRefreshTokens() {
	s.refresh.RevokeAll()
}

// SeedAdmin creates an admin account with the given role.
func (s *Server) SeedAdmin(name, email, password, role string) (*Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Kind:         KindAdmin,
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		Verified:     true,
		DateJoined:   token.NowTimeFunc(),
	}
	return a, s.accounts.Upsert(a)
}

// PendingOTP returns the last OTP sent to an unverified user.
func (s *Server) PendingOTP(email string) (string, bool) {
	a, err := s.accounts.GetByEmail(KindUser, email)
	if err != nil || a.OTP == "" {
		return "", false
	}
	return a.OTP, true
}
