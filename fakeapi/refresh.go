package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/fishmapai/fishmap-gateway/token"
)

const refreshTokenBytes = 32

// StoredRefreshToken is the server side record behind a refresh cookie. The
// client only ever sees Token.
type StoredRefreshToken struct {
	Token     string
	AccountID string
	Kind      Kind
	Iat       time.Time
}

// RefreshManager issues opaque refresh tokens, one per account.
type RefreshManager struct {
	expiry time.Duration

	mu        sync.RWMutex
	tokens    map[string]*StoredRefreshToken
	byAccount map[string]string
}

func NewRefreshManager(expiry time.Duration) *RefreshManager {
	return &RefreshManager{
		expiry:    expiry,
		tokens:    make(map[string]*StoredRefreshToken),
		byAccount: make(map[string]string),
	}
}

// Create replaces any refresh token the account already holds.
func (m *RefreshManager) Create(accountID string, kind Kind) (string, error) {
	tokenBytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byAccount[accountID]; ok {
		delete(m.tokens, existing)
	}
	m.tokens[tokenStr] = &StoredRefreshToken{
		Token:     tokenStr,
		AccountID: accountID,
		Kind:      kind,
		Iat:       token.NowTimeFunc(),
	}
	m.byAccount[accountID] = tokenStr
	return tokenStr, nil
}

// Get returns the stored token if it exists, matches kind and has not expired.
func (m *RefreshManager) Get(tokenStr string, kind Kind) (*StoredRefreshToken, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rt, ok := m.tokens[tokenStr]
	if !ok || rt.Kind != kind || m.isExpired(rt) {
		return nil, false
	}
	return rt, true
}

func (m *RefreshManager) Delete(tokenStr string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.tokens[tokenStr]; ok {
		delete(m.byAccount, rt.AccountID)
		delete(m.tokens, tokenStr)
	}
}

// RevokeAll drops every refresh token.
func (m *RefreshManager) RevokeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = make(map[string]*StoredRefreshToken)
	m.byAccount = make(map[string]string)
}

func (m *RefreshManager) isExpired(rt *StoredRefreshToken) bool {
	return m.expiry > 0 && token.NowTimeFunc().Sub(rt.Iat) > m.expiry
}
