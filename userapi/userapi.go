package userapi

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/fishmapai/fishmap-gateway/apiclient"
	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"golang.org/x/oauth2"
)

// User endpoints of the Fishmap backend.
const (
	RegisterPath  = "/users"
	ProfilePath   = "/users"
	LoginPath     = "/login"
	LogoutPath    = "/logout"
	VerifyOTPPath = "/verify-otp"
	ResendOTPPath = "/resend-otp"
)

const (
	MsgInvalidData   = "Data yang Anda masukkan tidak valid"
	MsgAlreadyExists = "Email atau nomor HP sudah terdaftar"
	MsgRegisterFail  = "Registrasi gagal"
	MsgInvalidOTP    = "Kode OTP harus 6 digit angka"
)

const otpLength = 6

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
}

// Normalize trims the free text fields and lower-cases the email.
func (r RegisterRequest) Normalize() RegisterRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
	Msg         string `json:"msg"`
}

// Client is the end-user side of the backend. The access token is held in
// memory only, next to the refresh cookie in the client's jar.
type Client struct {
	api *apiclient.Client

	mu     sync.RWMutex
	source oauth2.TokenSource
	user   *User
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Register creates an account. The backend then sends an OTP to the email.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req = req.Normalize()
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Password != req.ConfirmPassword {
		return nil, apperrors.NewStatusError(http.StatusBadRequest, MsgInvalidData, false)
	}

	var resp struct {
		User *User `json:"user"`
	}
	if err := c.api.Do(ctx, http.MethodPost, RegisterPath, nil, req, &resp); err != nil {
		return nil, registerError(err)
	}
	return resp.User, nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	otp = strings.TrimSpace(otp)
	if !validOTP(otp) {
		return apperrors.NewStatusError(http.StatusBadRequest, MsgInvalidOTP, false)
	}
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email)), "otp": otp}
	return apperrors.Wrapf(c.api.Do(ctx, http.MethodPost, VerifyOTPPath, nil, body, nil), "[User VerifyOTP]")
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email))}
	return apperrors.Wrapf(c.api.Do(ctx, http.MethodPost, ResendOTPPath, nil, body, nil), "[User ResendOTP]")
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	req := map[string]string{"email": strings.ToLower(strings.TrimSpace(email)), "password": password}

	var resp loginResponse
	if err := c.api.Do(ctx, http.MethodPost, LoginPath, nil, req, &resp); err != nil {
		return nil, apperrors.Wrapf(err, "[User Login]")
	}
	if resp.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[User Login] response has no access token")
	}

	c.mu.Lock()
	c.source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: resp.AccessToken, TokenType: "Bearer"})
	c.user = resp.User
	c.mu.Unlock()
	return resp.User, nil
}

// Profile fetches the logged in user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	header, err := c.authHeader()
	if err != nil {
		return nil, err
	}

	var user User
	if err := c.api.Do(ctx, http.MethodGet, ProfilePath, header, nil, &user); err != nil {
		return nil, apperrors.Wrapf(err, "[User Profile]")
	}
	return &user, nil
}

// Logout ends the backend session and always drops the in-memory token.
func (c *Client) Logout(ctx context.Context) error {
	header, _ := c.authHeader()

	c.mu.Lock()
	c.source = nil
	c.user = nil
	c.mu.Unlock()

	return apperrors.Wrapf(c.api.Do(ctx, http.MethodDelete, LogoutPath, header, nil, nil), "[User Logout]")
}

func (c *Client) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source != nil
}

func (c *Client) authHeader() (http.Header, error) {
	c.mu.RLock()
	source := c.source
	c.mu.RUnlock()
	if source == nil {
		return nil, apperrors.ErrNotAuthenticated
	}

	tok, err := source.Token()
	if err != nil {
		return nil, apperrors.Wrapf(err, "[User] token source")
	}
	h := apiclient.BearerHeader(tok.AccessToken)
	h.Set("Content-Type", "application/json")
	return h, nil
}

// registerError replaces the backend message with the ones shown to users.
func registerError(err error) error {
	var apiErr *apperrors.APIError
	if !apperrors.As(err, &apiErr) || apiErr.Status == 0 {
		return err
	}
	msg := apiErr.Message
	switch apiErr.Status {
	case http.StatusBadRequest:
		if msg == "" {
			msg = MsgInvalidData
		}
	case http.StatusConflict:
		msg = MsgAlreadyExists
	default:
		if msg == "" {
			msg = MsgRegisterFail
		}
	}
	return apperrors.NewStatusError(apiErr.Status, msg, apiErr.NeedLogin)
}

func validOTP(otp string) bool {
	if len(otp) != otpLength {
		return false
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
