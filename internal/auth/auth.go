// Package auth decides whether an API key may send mail.
package auth

import (
	"context"
	"crypto/subtle"
)

// Authorizer checks an API key. It returns false for keys that are known
// not to have send permission and an error when the answer could not be
// obtained.
type Authorizer interface {
	Authorize(ctx context.Context, key string) (bool, error)
}

// Static authorizes a fixed set of keys. Used for development and tests.
type Static struct {
	keys []string
}

// NewStatic creates a Static authorizer for the given keys.
func NewStatic(keys ...string) *Static {
	return &Static{keys: keys}
}

// Authorize reports whether key is one of the configured keys.
func (s *Static) Authorize(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	ok := false
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok, nil
}

// AllowAll accepts every non-empty key.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(_ context.Context, key string) (bool, error) {
	return key != "", nil
}
