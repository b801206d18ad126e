// Package sessions owns the durable session credential: an opaque secret,
// held client-side only as an httponly cookie, that every downstream API
// resolves back to a principal.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// CookieName is fixed; the cookie's attributes are policy, not configuration.
const CookieName = "tasklane_session"

// DefaultTTL is the session lifetime when config leaves it unset.
const DefaultTTL = 14 * 24 * time.Hour

const secretLength = 32

var NotFoundErr = errors.New("session not found")

// Session binds an opaque secret to a user. The secret has no internal
// structure; nothing in this codebase parses it.
type Session struct {
	Secret    string    `json:"secret"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type Repo interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, secret string) (*Session, error)
	Delete(ctx context.Context, secret string) error
}

// NewSecret returns an opaque URL-safe session secret.
func NewSecret() (string, error) {
	b := make([]byte, secretLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
