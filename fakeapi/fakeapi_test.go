package fakeapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fishmapai/fishmap-gateway/fakeapi"
	"github.com/fishmapai/fishmap-gateway/token"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *fakeapi.Server {
	t.Helper()
	srv, err := fakeapi.New()
	require.NoError(t, err)
	_, err = srv.SeedAdmin("Rina", "rina@fishmap.id", "Rahasia123", "super_admin")
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, h http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == fakeapi.AdminRefreshCookie {
			require.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("no refresh cookie set")
	return nil
}

func TestAdminLoginAndRefresh(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, fakeapi.RouteAdminLogin, map[string]string{"email": "rina@fishmap.id", "password": "Rahasia123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		AccessToken string `json:"accessToken"`
		Admin       struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)
	require.Equal(t, "Rina", login.Admin.Name)
	require.Equal(t, "super_admin", login.Admin.Role)

	claims, err := srv.Issuer().Verify(login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, token.KindAdmin, claims.Kind)

	cookie := refreshCookie(t, rec)

	rec = do(t, srv, http.MethodGet, fakeapi.RouteAdminToken, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "accessToken")
	require.Equal(t, 1, srv.Calls("GET "+fakeapi.RouteAdminToken))

	srv.RevokeRefreshTokens()
	rec = do(t, srv, http.MethodGet, fakeapi.RouteAdminToken, nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"Refresh token tidak valid","needLogin":true}`, rec.Body.String())
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, fakeapi.RouteAdminLogin, map[string]string{"email": "rina@fishmap.id", "password": "salah"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestAdminToken_WithoutCookie(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, fakeapi.RouteAdminToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLogoutDropsRefreshToken(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, fakeapi.RouteAdminLogin, map[string]string{"email": "rina@fishmap.id", "password": "Rahasia123"})
	cookie := refreshCookie(t, rec)

	rec = do(t, srv, http.MethodDelete, fakeapi.RouteAdminLogout, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, fakeapi.RouteAdminToken, nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister(t *testing.T) {
	srv := newServer(t)
	body := map[string]string{
		"name":            "Sari",
		"email":           "sari@example.com",
		"password":        "Ikan12345",
		"confirmPassword": "Ikan12345",
		"phone":           "08123",
		"gender":          "female",
	}

	rec := do(t, srv, http.MethodPost, fakeapi.RouteUsers, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	otp, ok := srv.PendingOTP("sari@example.com")
	require.True(t, ok)
	require.Len(t, otp, 6)

	t.Run("duplicate", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, fakeapi.RouteUsers, body)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		weak := map[string]string{"name": "A", "email": "a@example.com", "password": "abc", "confirmPassword": "abc"}
		rec := do(t, srv, http.MethodPost, fakeapi.RouteUsers, weak)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unverified login is refused", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, fakeapi.RouteLogin, map[string]string{"email": "sari@example.com", "password": "Ikan12345"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestJWKS(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, fakeapi.RouteJWKS, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var jwks token.JWKS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "fakeapi-1", jwks.Keys[0].Kid)
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, fakeapi.ValidatePasswordStrength("Ikan12345"))
	require.Error(t, fakeapi.ValidatePasswordStrength("short1A"))
	require.Error(t, fakeapi.ValidatePasswordStrength("alllowercase1"))
}
