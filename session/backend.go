package session

import (
	"context"
	"time"
)

// Grant is what the backend hands out on login or refresh. Identity is nil
// when the refresh response omits the admin.
type Grant struct {
	AccessToken string
	Identity    *Identity
}

// Backend is the token-issuing API. Refresh relies on a credential the backend
// keeps outside the Store (an httpOnly cookie).
type Backend interface {
	Login(ctx context.Context, email, password string) (Grant, error)
	Refresh(ctx context.Context) (Grant, error)
	Logout(ctx context.Context) error
}

// TokenChecker validates an access token and reports its expiry. A zero expiry
// means the token does not say.
type TokenChecker interface {
	Check(ctx context.Context, rawToken string) (time.Time, error)
}

// Observer is told about every refresh attempt.
type Observer interface {
	ObserveRefresh(trigger string, err error)
}
