package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fishmapai/fishmap-gateway/fakeapi"
	"github.com/fishmapai/fishmap-gateway/internal/config"
	"github.com/fishmapai/fishmap-gateway/server"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "budi@fishmap.id"
	verifierEmail = "sari@fishmap.id"
	testPassword  = "Rahasia123!"
)

type testEnv struct {
	backend *fakeapi.Server
	gateway *server.Server
	baseURL string
	client  *http.Client
}

func newTestEnv(t *testing.T, env map[string]string) *testEnv {
	t.Helper()

	backend, err := fakeapi.New()
	require.NoError(t, err)
	_, err = backend.SeedAdmin("Budi Santoso", adminEmail, testPassword, "admin")
	require.NoError(t, err)
	_, err = backend.SeedAdmin("Sari Wulandari", verifierEmail, testPassword, "seller_verifier")
	require.NoError(t, err)

	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	t.Setenv("ENV", "TEST")
	t.Setenv("BACKEND_URL", backendSrv.URL)
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)

	gw, err := server.New(cfg)
	require.NoError(t, err)
	gwSrv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gwSrv.Close()
		gw.Close()
	})

	return &testEnv{
		backend: backend,
		gateway: gw,
		baseURL: gwSrv.URL,
		client:  newBrowser(t),
	}
}

// newBrowser keeps cookies and does not follow redirects.
func newBrowser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.baseURL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path, contentType, body string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Post(e.baseURL+path, contentType, strings.NewReader(body))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T, email, password, from string) (*http.Response, string) {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}, "from": {from}}
	return e.post(t, server.RouteAdminLogin, "application/x-www-form-urlencoded", form.Encode())
}

func (e *testEnv) mustLogin(t *testing.T, email string) {
	t.Helper()
	resp, _ := e.login(t, email, testPassword, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeJSON(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

const dashboardLoginRedirect = "/admin/login?from=%2Fadmin%2Fdashboard"

func TestGate_RedirectsUnknownBrowserToLogin(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, _ := e.get(t, server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, dashboardLoginRedirect, resp.Header.Get("Location"))
	require.Equal(t, 0, e.gateway.Sessions().Len(), "the gate must not create sessions")
	require.Equal(t, 0, e.backend.Calls("GET /admin/token"), "the gate must not call the backend")

	resp, _ = e.get(t, "/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))
}

func TestLoginFlow(t *testing.T) {
	e := newTestEnv(t, nil)

	t.Run("login page", func(t *testing.T) {
		resp, body := e.get(t, server.RouteAdminLogin+"?from=%2Fadmin%2Freports")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `name="from" value="/admin/reports"`)
	})

	t.Run("bad password shows the backend message", func(t *testing.T) {
		resp, body := e.login(t, adminEmail, "salah", "/admin/reports")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, body, "Email atau password salah")
		require.Contains(t, body, `value="budi@fishmap.id"`)
	})

	t.Run("login returns to the requested page", func(t *testing.T) {
		resp, _ := e.login(t, adminEmail, testPassword, "/admin/reports")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, server.RouteAdminReports, resp.Header.Get("Location"))

		resp, body := e.get(t, server.RouteAdminReports)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Laporan")
		require.Contains(t, body, "Budi Santoso")
		require.NotContains(t, body, "Kelola Admin", "role gated pages are hidden from the nav")
	})

	t.Run("session status never exposes the token", func(t *testing.T) {
		resp, body := e.get(t, server.RouteSessionStatus)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		status := decodeJSON(t, body)
		require.Equal(t, "authenticated", status["status"])
		require.Equal(t, true, status["isAuthenticated"])
		require.NotContains(t, body, "accessToken")

		admin := status["admin"].(map[string]any)
		require.Equal(t, "Budi Santoso", admin["name"])
	})

	t.Run("authenticated visitors skip the login page", func(t *testing.T) {
		resp, _ := e.get(t, server.RouteAdminLogin+"?from=%2Fadmin%2Fsettings")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, server.RouteAdminSettings, resp.Header.Get("Location"))

		resp, _ = e.get(t, server.RouteAdminLogin+"?from=%2F%2Fevil.example")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, server.RouteAdminDashboard, resp.Header.Get("Location"))
	})

	t.Run("logout", func(t *testing.T) {
		resp, _ := e.post(t, server.RouteAdminLogout, "application/x-www-form-urlencoded", "")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, server.RouteAdminLogin, resp.Header.Get("Location"))
		require.Equal(t, 1, e.backend.Calls("DELETE /admin/logout"))
		require.Equal(t, 0, e.gateway.Sessions().Len())

		resp, _ = e.get(t, server.RouteAdminDashboard)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, dashboardLoginRedirect, resp.Header.Get("Location"))
	})
}

func TestGate_RoleMismatch(t *testing.T) {
	e := newTestEnv(t, nil)
	e.mustLogin(t, adminEmail)

	resp, body := e.get(t, server.RouteAdminManageAdmins)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
	require.Contains(t, body, "Akses Ditolak")
	require.Contains(t, body, "super_admin")
	require.Contains(t, body, "window.history.back()")

	resp, _ = e.get(t, server.RouteAdminSellerRequests)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGate_RoleMatch(t *testing.T) {
	e := newTestEnv(t, nil)
	e.mustLogin(t, verifierEmail)

	resp, body := e.get(t, server.RouteAdminSellerRequests)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Permintaan Penjual")
	require.Contains(t, body, "Verifikator Penjual")
}

func TestScheduledRefreshFailureEndsSession(t *testing.T) {
	e := newTestEnv(t, map[string]string{"SESSION_REFRESH_INTERVAL": "50ms"})
	e.mustLogin(t, adminEmail)

	require.Eventually(t, func() bool {
		return e.backend.Calls("GET /admin/token") >= 2
	}, 5*time.Second, 10*time.Millisecond, "the scheduler keeps refreshing")

	resp, _ := e.get(t, server.RouteAdminDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	e.backend.RevokeRefreshTokens()

	require.Eventually(t, func() bool {
		resp, _ := e.get(t, server.RouteAdminDashboard)
		return resp.StatusCode == http.StatusSeeOther && resp.Header.Get("Location") == dashboardLoginRedirect
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAPIProxy(t *testing.T) {
	e := newTestEnv(t, nil)

	t.Run("without a session", func(t *testing.T) {
		resp, body := e.get(t, "/admin/api/admin/profile")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "SESSION_EXPIRED", decodeJSON(t, body)["code"])
	})

	e.mustLogin(t, adminEmail)

	t.Run("attaches the bearer token", func(t *testing.T) {
		resp, body := e.get(t, "/admin/api/admin/profile")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		admin := decodeJSON(t, body)["admin"].(map[string]any)
		require.Equal(t, "Budi Santoso", admin["name"])
	})

	t.Run("profile through the session", func(t *testing.T) {
		resp, body := e.get(t, server.RouteSessionProfile)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, adminEmail, decodeJSON(t, body)["email"])
	})

	t.Run("upstream 401 ends the session", func(t *testing.T) {
		// The proxy strips cookies, so the refresh endpoint always refuses.
		logouts := e.backend.Calls("DELETE /admin/logout")
		resp, body := e.get(t, "/admin/api/admin/token")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, map[string]any{"error": "Sesi Anda telah berakhir", "code": "SESSION_EXPIRED"}, decodeJSON(t, body))
		require.Equal(t, logouts+1, e.backend.Calls("DELETE /admin/logout"))

		resp, body = e.get(t, server.RouteSessionStatus)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "unauthenticated", decodeJSON(t, body)["status"])

		resp, _ = e.get(t, server.RouteAdminDashboard)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, dashboardLoginRedirect, resp.Header.Get("Location"))
	})
}

func TestVisibilityAndUnload(t *testing.T) {
	e := newTestEnv(t, nil)
	const jsonType = "application/json"

	resp, _ := e.post(t, server.RouteSessionVisibility, jsonType, `{"visible":true}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	e.mustLogin(t, adminEmail)
	before := e.backend.Calls("GET /admin/token")

	t.Run("hidden tab does nothing", func(t *testing.T) {
		resp, _ := e.post(t, server.RouteSessionVisibility, jsonType, `{"visible":false}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, before, e.backend.Calls("GET /admin/token"))
	})

	t.Run("visible tab refreshes", func(t *testing.T) {
		resp, body := e.post(t, server.RouteSessionVisibility, jsonType, `{"visible":true}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "authenticated", decodeJSON(t, body)["status"])
		require.Equal(t, before+1, e.backend.Calls("GET /admin/token"))
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := e.post(t, server.RouteSessionVisibility, jsonType, `{}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unload drops the token only", func(t *testing.T) {
		resp, _ := e.post(t, server.RouteSessionUnload, "text/plain", "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		calls := e.backend.Calls("GET /admin/token")
		resp, _ = e.get(t, server.RouteAdminDashboard)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = e.get(t, "/admin/api/admin/profile")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, calls+1, e.backend.Calls("GET /admin/token"), "a fresh token is fetched on demand")
	})

	t.Run("failed refresh on visible ends the session", func(t *testing.T) {
		e.backend.RevokeRefreshTokens()

		resp, body := e.post(t, server.RouteSessionVisibility, jsonType, `{"visible":true}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "SESSION_EXPIRED", decodeJSON(t, body)["code"])

		resp, _ = e.get(t, server.RouteAdminDashboard)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	})
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t, map[string]string{"LOGIN_RATE_LIMIT": "2"})

	for i := 0; i < 2; i++ {
		resp, _ := e.login(t, adminEmail, "salah", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := e.login(t, adminEmail, testPassword, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Contains(t, body, "Terlalu banyak percobaan login")
	require.Equal(t, 2, e.backend.Calls("POST /admin/login"))

	_, metrics := e.get(t, server.RouteMetrics)
	require.Contains(t, metrics, "fishmap_gateway_login_rate_limited_total 1")
}

func TestExpireIdleSessions(t *testing.T) {
	e := newTestEnv(t, map[string]string{"SESSION_IDLE_TIMEOUT": "1m"})
	e.mustLogin(t, adminEmail)
	require.Equal(t, 1, e.gateway.Sessions().Len())

	require.Zero(t, e.gateway.ExpireIdleSessions(context.Background(), time.Now()))
	require.Equal(t, 1, e.gateway.ExpireIdleSessions(context.Background(), time.Now().Add(2*time.Minute)))
	require.Equal(t, 0, e.gateway.Sessions().Len())
	require.Equal(t, 1, e.backend.Calls("DELETE /admin/logout"))

	resp, _ := e.get(t, server.RouteAdminDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.get(t, server.RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeJSON(t, body)
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "memory", health["limiter"])

	e.mustLogin(t, adminEmail)
	resp, body = e.get(t, server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "fishmap_gateway_browser_sessions 1")
	require.Contains(t, body, "fishmap_gateway_backend_request_seconds")

	resp, _ = e.get(t, server.RouteSessionStatus)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
