package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Inspector reads access tokens handed out by the backend. It only needs the
// exp claim; when a key set is configured the signature is checked first.
// Opaque (non JWT) tokens pass without an expiry unless a key set is set.
type Inspector struct {
	keySet oidc.KeySet
}

type InspectorOption func(*Inspector)

func WithKeySet(keySet oidc.KeySet) InspectorOption {
	return func(i *Inspector) {
		i.keySet = keySet
	}
}

func NewInspector(opts ...InspectorOption) *Inspector {
	i := &Inspector{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewRemoteInspector verifies signatures against the backend's published JWKS.
func NewRemoteInspector(ctx context.Context, jwksURL string) *Inspector {
	return NewInspector(WithKeySet(oidc.NewRemoteKeySet(ctx, jwksURL)))
}

// Check returns the token's expiry, or a zero time when it carries none.
func (i *Inspector) Check(ctx context.Context, rawToken string) (time.Time, error) {
	claims, err := i.Inspect(ctx, rawToken)
	if err != nil {
		return time.Time{}, err
	}
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// Inspect returns the token's claims. It returns nil claims for an opaque
// token when no key set is configured.
func (i *Inspector) Inspect(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	if i.keySet != nil {
		if _, err := i.keySet.VerifySignature(ctx, rawToken); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
		}
	}

	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		if i.keySet != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
		}
		return nil, nil
	}

	if claims.ExpiresAt != nil && !NowTimeFunc().Before(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrTokenExpired
	}
	return claims, nil
}
