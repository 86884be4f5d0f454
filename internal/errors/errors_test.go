package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	cases := map[int]apperrors.Kind{
		http.StatusBadRequest:          apperrors.KindValidation,
		http.StatusUnauthorized:        apperrors.KindUnauthorized,
		http.StatusForbidden:           apperrors.KindUnauthorized,
		http.StatusNotFound:            apperrors.KindNotFound,
		http.StatusConflict:            apperrors.KindConflict,
		http.StatusUnprocessableEntity: apperrors.KindValidation,
		http.StatusInternalServerError: apperrors.KindServer,
		http.StatusBadGateway:          apperrors.KindServer,
	}
	for status, want := range cases {
		require.Equal(t, want, apperrors.KindForStatus(status), "status %d", status)
	}
}

func TestAPIError_Chain(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := apperrors.Wrapf(apperrors.NewNetworkError(cause), "refresh")

	require.Equal(t, apperrors.KindNetwork, apperrors.KindOf(err))
	require.True(t, apperrors.Is(err, cause))
	require.True(t, apperrors.IsAuthFailure(err))
	require.Contains(t, err.Error(), "connection refused")
}

func TestIsAuthFailure(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		require.True(t, apperrors.IsAuthFailure(apperrors.NewStatusError(http.StatusUnauthorized, "Refresh token invalid", false)))
	})

	t.Run("need login flag on a validation status", func(t *testing.T) {
		require.True(t, apperrors.IsAuthFailure(apperrors.NewStatusError(http.StatusBadRequest, "", true)))
	})

	t.Run("server error", func(t *testing.T) {
		require.False(t, apperrors.IsAuthFailure(apperrors.NewStatusError(http.StatusInternalServerError, "boom", false)))
	})

	t.Run("plain error", func(t *testing.T) {
		require.False(t, apperrors.IsAuthFailure(fmt.Errorf("x")))
		require.Equal(t, apperrors.Kind(""), apperrors.KindOf(fmt.Errorf("x")))
	})
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored %s", "arg"))
}
