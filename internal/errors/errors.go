package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the gateway
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Token errors
	ErrNoValidToken = errors.New("no valid access token available")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionClosed   = errors.New("session closed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Kind classifies a failed backend call so callers can branch on it
// instead of inspecting message text.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
)

// APIError is produced at the backend call boundary. Status is zero for
// transport failures.
type APIError struct {
	Kind      Kind
	Status    int
	Message   string // server supplied "msg", if any
	NeedLogin bool   // server asked the client to log in again
	Err       error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewNetworkError tags a transport failure.
func NewNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Err: err}
}

// NewStatusError tags a non-2xx response by its status code.
func NewStatusError(status int, message string, needLogin bool) *APIError {
	return &APIError{
		Kind:      KindForStatus(status),
		Status:    status,
		Message:   message,
		NeedLogin: needLogin,
	}
}

// KindForStatus maps an HTTP status onto an error kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// KindOf returns the kind of the first APIError in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsAuthFailure reports whether err means the session can no longer be trusted.
// Network failures count: a refresh that cannot reach the backend fails closed.
func IsAuthFailure(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindNetwork:
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NeedLogin
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
