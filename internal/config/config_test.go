package config_test

import (
	"testing"
	"time"

	"github.com/fishmapai/fishmap-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 14*time.Minute, c.GetRefreshInterval())
	require.Equal(t, 15*time.Minute, c.GetAccessTokenTTL())
	require.Equal(t, "https://api-fitcalori.my.id", c.GetBackendURL())
	require.Equal(t, "fishmap_sid", c.GetSessionCookieName())
	require.Empty(t, c.GetRedisURL())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("BACKEND_URL", "http://localhost:5000/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SESSION_REFRESH_INTERVAL", "1m")
	t.Setenv("SESSION_ACCESS_TOKEN_TTL", "2m")

	c, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "http://localhost:5000", c.GetBackendURL())
	require.Equal(t, []string{"http://a.test", "http://b.test"}, c.GetAllowedOrigins().List())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://b.test"))
	require.Equal(t, time.Minute, c.GetRefreshInterval())
}

func TestLoad_RefreshMustPrecedeExpiry(t *testing.T) {
	t.Setenv("SESSION_REFRESH_INTERVAL", "20m")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be shorter")
}
