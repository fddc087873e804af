// Package auth provides shared-secret authentication for signalhub requests.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/url"
)

// QueryParam is the query parameter that carries the shared secret.
const QueryParam = "key"

// Credentials holds the shared secret producers and consumers present.
type Credentials struct {
	Key string
}

// LoadCredentials validates and wraps a shared secret.
func LoadCredentials(key string) (*Credentials, error) {
	if key == "" {
		return nil, errors.New("secret key is required")
	}
	return &Credentials{Key: key}, nil
}

// Verify reports whether presented matches the secret. The comparison runs
// in constant time.
func (c *Credentials) Verify(presented string) bool {
	if c == nil || c.Key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(c.Key)) == 1
}

// SignURL adds the secret to u's query string. A nil receiver leaves u unchanged.
func (c *Credentials) SignURL(u *url.URL) {
	if c == nil || c.Key == "" {
		return
	}
	q := u.Query()
	q.Set(QueryParam, c.Key)
	u.RawQuery = q.Encode()
}
