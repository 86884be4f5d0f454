package userapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fishmapai/fishmap-gateway/apiclient"
	"github.com/fishmapai/fishmap-gateway/fakeapi"
	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/fishmapai/fishmap-gateway/userapi"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*userapi.Client, *fakeapi.Server) {
	t.Helper()
	backend, err := fakeapi.New()
	require.NoError(t, err)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	api, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	return userapi.New(api), backend
}

func registration() userapi.RegisterRequest {
	return userapi.RegisterRequest{
		Name:            "  Sari ",
		Email:           " Sari@Example.com ",
		Password:        "Ikan12345",
		ConfirmPassword: "Ikan12345",
		Phone:           " 08123 ",
		Gender:          "female",
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	client, backend := newClient(t)
	ctx := context.Background()

	user, err := client.Register(ctx, registration())
	require.NoError(t, err)
	require.Equal(t, "sari@example.com", user.Email)
	require.Equal(t, "Sari", user.Name)

	_, ok := backend.PendingOTP("sari@example.com")
	require.True(t, ok)

	require.NoError(t, client.ResendOTP(ctx, "sari@example.com"))
	resent, _ := backend.PendingOTP("sari@example.com")
	require.Error(t, client.VerifyOTP(ctx, "sari@example.com", wrongOTP(resent)))

	require.NoError(t, client.VerifyOTP(ctx, "sari@example.com", resent))

	logged, err := client.Login(ctx, "sari@example.com", "Ikan12345")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)
	require.True(t, client.LoggedIn())

	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "08123", profile.Phone)

	require.NoError(t, client.Logout(ctx))
	require.False(t, client.LoggedIn())
	require.Nil(t, client.User())

	_, err = client.Profile(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestRegister_Messages(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	_, err := client.Register(ctx, registration())
	require.NoError(t, err)

	t.Run("conflict", func(t *testing.T) {
		_, err := client.Register(ctx, registration())
		var apiErr *apperrors.APIError
		require.True(t, apperrors.As(err, &apiErr))
		require.Equal(t, http.StatusConflict, apiErr.Status)
		require.Equal(t, userapi.MsgAlreadyExists, apiErr.Message)
	})

	t.Run("mismatched confirmation never reaches the backend", func(t *testing.T) {
		req := registration()
		req.ConfirmPassword = "different"
		_, err := client.Register(ctx, req)
		var apiErr *apperrors.APIError
		require.True(t, apperrors.As(err, &apiErr))
		require.Equal(t, userapi.MsgInvalidData, apiErr.Message)
	})

	t.Run("server message on 400", func(t *testing.T) {
		req := registration()
		req.Email = "other@example.com"
		req.Phone = "0899"
		req.Password = "lemah"
		req.ConfirmPassword = "lemah"
		_, err := client.Register(ctx, req)
		require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		require.Contains(t, err.Error(), "password minimal 8 karakter")
	})
}

func TestVerifyOTP_Format(t *testing.T) {
	client, backend := newClient(t)

	for _, otp := range []string{"", "12345", "1234567", "12a456"} {
		err := client.VerifyOTP(context.Background(), "sari@example.com", otp)
		require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), otp)
	}
	require.Zero(t, backend.Calls("POST "+fakeapi.RouteVerifyOTP))
}

func wrongOTP(otp string) string {
	if otp == "000000" {
		return "111111"
	}
	return "000000"
}
