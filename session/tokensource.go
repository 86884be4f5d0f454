package session

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type storeTokenSource struct {
	ctx   context.Context
	store *Store
}

// Token returns the store's current valid token. It does not cache: every call
// goes through ValidToken so a refreshed token is picked up immediately.
func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.store.ValidToken(ts.ctx)
	if err != nil {
		return nil, err
	}

	ts.store.mu.RLock()
	expiry := ts.store.expiry
	ts.store.mu.RUnlock()

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// TokenSource exposes the store as an oauth2.TokenSource.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return storeTokenSource{ctx: ctx, store: s}
}

// HTTPClient returns a client that attaches the bearer token to every request.
// A nil base uses http.DefaultTransport.
func (s *Store) HTTPClient(ctx context.Context, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: s.TokenSource(ctx),
			Base:   base,
		},
	}
}
