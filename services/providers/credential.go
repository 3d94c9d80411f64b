package providers

import "sync/atomic"

// Credential holds an API key that may be set or revoked at runtime.
type Credential struct {
	key atomic.Value
}

// NewCredential creates a credential holder with an initial key (may be empty)
func NewCredential(key string) *Credential {
	c := &Credential{}
	c.key.Store(key)
	return c
}

// Get returns the current key
func (c *Credential) Get() string {
	if c == nil {
		return ""
	}
	v, _ := c.key.Load().(string)
	return v
}

// Set replaces the key; an empty key revokes it
func (c *Credential) Set(key string) {
	c.key.Store(key)
}

// Present reports whether a non-empty key is configured
func (c *Credential) Present() bool {
	return c.Get() != ""
}
