package token

import (
	"sync"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// RevokedTokenCache is the refresh endpoint's deny list. A refresh token is entered by its
// jti when it is revoked before expiry, and the endpoint rejects any later refresh that
// presents it. Entries only need to live until the token's own exp, after
// which signature verification rejects it anyway.
type RevokedTokenCache interface {
	Add(jti string, exp time.Time) error
	IsRevoked(jti string) bool
	// Cleanup drops jtis whose refresh token has expired.
	Cleanup()
}

// InMemoryRevokedTokenCache keeps the deny list in process; it is lost when the dev server
// restarts, along with the signing key that issued the tokens.
type InMemoryRevokedTokenCache struct {
	mu     sync.RWMutex
	denied map[string]time.Time // jti -> refresh token exp
}

var _ RevokedTokenCache = (*InMemoryRevokedTokenCache)(nil)

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{denied: make(map[string]time.Time)}
}

// Add denies the refresh token with the given jti until exp.
func (c *InMemoryRevokedTokenCache) Add(jti string, exp time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.denied[jti]; ok && cur.After(exp) {
		return nil
	}
	c.denied[jti] = exp
	return nil
}

// IsRevoked reports whether a refresh with this jti must be refused.
func (c *InMemoryRevokedTokenCache) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, denied := c.denied[jti]
	return denied
}

func (c *InMemoryRevokedTokenCache) Cleanup() {
	now := NowTimeFunc()
	c.mu.Lock()
	defer c.mu.Unlock()
	for jti, exp := range c.denied {
		if !now.Before(exp) {
			delete(c.denied, jti)
		}
	}
}

// Len returns the number of jtis still denied.
func (c *InMemoryRevokedTokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.denied)
}
