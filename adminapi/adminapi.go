package adminapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/fishmapai/fishmap-gateway/apiclient"
	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/fishmapai/fishmap-gateway/session"
)

// Admin endpoints of the Fishmap backend.
const (
	LoginPath   = "/admin/login"
	TokenPath   = "/admin/token"
	LogoutPath  = "/admin/logout"
	ProfilePath = "/admin/profile"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both login and refresh. Admin may be absent on
// refresh.
type TokenResponse struct {
	AccessToken string            `json:"accessToken"`
	Admin       *session.Identity `json:"admin,omitempty"`
}

// Client talks to the admin endpoints. The refresh credential is an httpOnly
// cookie kept in the underlying client's cookie jar, so each admin session
// needs its own Client (see apiclient.Client.Fork).
type Client struct {
	api *apiclient.Client
}

var _ session.Backend = (*Client)(nil)

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Login(ctx context.Context, email, password string) (session.Grant, error) {
	req := LoginRequest{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if req.Email == "" || req.Password == "" {
		return session.Grant{}, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "[Admin Login] email and password are required")
	}

	var resp TokenResponse
	if err := c.api.Do(ctx, http.MethodPost, LoginPath, nil, req, &resp); err != nil {
		return session.Grant{}, apperrors.Wrapf(err, "[Admin Login] %s", req.Email)
	}
	return resp.grant(), nil
}

func (c *Client) Refresh(ctx context.Context) (session.Grant, error) {
	var resp TokenResponse
	if err := c.api.Do(ctx, http.MethodGet, TokenPath, nil, nil, &resp); err != nil {
		return session.Grant{}, apperrors.Wrapf(err, "[Admin Refresh]")
	}
	return resp.grant(), nil
}

func (c *Client) Logout(ctx context.Context) error {
	return apperrors.Wrapf(c.api.Do(ctx, http.MethodDelete, LogoutPath, nil, nil, nil), "[Admin Logout]")
}

// Profile fetches the logged in admin using the store's bearer header.
func (c *Client) Profile(ctx context.Context, store *session.Store) (*session.Identity, error) {
	header, err := store.AuthHeader(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Admin *session.Identity `json:"admin"`
	}
	if err := c.api.Do(ctx, http.MethodGet, ProfilePath, header, nil, &resp); err != nil {
		return nil, apperrors.Wrapf(err, "[Admin Profile]")
	}
	if resp.Admin == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "[Admin Profile] response has no admin")
	}
	return resp.Admin, nil
}

func (r TokenResponse) grant() session.Grant {
	return session.Grant{AccessToken: r.AccessToken, Identity: r.Admin}
}
