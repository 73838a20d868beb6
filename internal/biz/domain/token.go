package domain

import (
	"sync"
	"time"
)

const (
	// TokenSafetyMargin is subtracted from the upstream expires_in before caching
	TokenSafetyMargin = 300 * time.Second
	// TokenClockSkew is the extra headroom required when serving a cached token
	TokenClockSkew = 5 * time.Second
)

// Clock returns the current time
type Clock func() time.Time

// AccessToken represents a cached WeChat access token (value object)
type AccessToken struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsFresh checks if the token can still be served at now
func (t *AccessToken) IsFresh(now time.Time) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return now.Add(TokenClockSkew).Before(t.ExpiresAt)
}

// TokenCache is a single-slot, time-bounded access token cache.
// Concurrent refreshes may race; the last Set wins.
type TokenCache struct {
	mu    sync.RWMutex
	token *AccessToken
	now   Clock
}

// NewTokenCache creates a token cache. A nil clock means time.Now.
func NewTokenCache(now Clock) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{now: now}
}

// Get returns the cached token if it is still fresh
func (c *TokenCache) Get() (AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.token.IsFresh(c.now()) {
		return AccessToken{}, false
	}
	return *c.token, true
}

// Set stores a token issued with the given upstream lifetime
func (c *TokenCache) Set(value string, expiresIn time.Duration) AccessToken {
	now := c.now()
	ttl := expiresIn - TokenSafetyMargin
	if ttl < 0 {
		ttl = 0
	}

	token := &AccessToken{Value: value, ExpiresAt: now.Add(ttl)}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return *token
}

// Invalidate drops the cached token
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
