package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Subject kinds carried in the typ claim.
const (
	KindAdmin = "admin"
	KindUser  = "user"
)

// Claims are the access token claims the Fishmap backend issues.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Kind  string `json:"typ,omitempty"`
	jwtlib.RegisteredClaims
}

// Subject is who an access token is issued to.
type Subject struct {
	ID    string
	Name  string
	Email string
	Role  string
	Kind  string
}

// Issuer creates and verifies short lived access tokens.
type Issuer struct {
	issuer  string
	ttl     time.Duration
	signer  Signer
	revoked RevokedCache
}

func NewIssuer(issuer string, ttl time.Duration, signer Signer, revoked RevokedCache) *Issuer {
	return &Issuer{
		issuer:  issuer,
		ttl:     ttl,
		signer:  signer,
		revoked: revoked,
	}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs an access token for the subject.
func (i *Issuer) Issue(sub Subject) (string, *Claims, error) {
	now := NowTimeFunc()
	claims := &Claims{
		Name:  sub.Name,
		Email: sub.Email,
		Role:  sub.Role,
		Kind:  sub.Kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   sub.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature, expiry and revocation of an access token.
func (i *Issuer) Verify(rawToken string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwtlib.ParseWithClaims(rawToken, claims, i.signer.VerificationKey,
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid access token")
	}
	if i.revoked != nil && i.revoked.IsRevoked(claims.ID) {
		return nil, errors.New("access token revoked")
	}
	return claims, nil
}

// Revoke invalidates an access token until it expires.
func (i *Issuer) Revoke(claims *Claims) {
	if i.revoked == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	i.revoked.Add(claims.ID, claims.ExpiresAt.Time)
}
