// Package secrets issues and verifies short-lived single-use secrets: the
// out-of-band MFA codes that step up a password login and the tokens that
// prove control of an email address.
package secrets

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// Purpose binds a secret to exactly one use. A secret issued for one purpose
// never verifies for another.
type Purpose string

const (
	PurposeMFACode     Purpose = "mfa-code"
	PurposeEmailVerify Purpose = "email-verify"
)

const (
	// MFACodeTTL is the only core-level timeout in the system.
	MFACodeTTL = 10 * time.Minute

	// DefaultEmailVerifyTTL applies when config leaves the link TTL unset.
	DefaultEmailVerifyTTL = 7 * 24 * time.Hour

	emailTokenLength = 32
)

// Secret is the issued value handed to the delivery side. Stores never see
// Value, only its hash.
type Secret struct {
	UserID    string
	Purpose   Purpose
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Record is what a Store persists for a pending secret.
type Record struct {
	UserID    string
	Purpose   Purpose
	ValueHash [32]byte
	IssuedAt  int64
	ExpiresAt int64
}

// Store persists at most one live record per (userID, purpose). Consume must
// be atomic: of two concurrent calls with the correct value, exactly one
// succeeds and the other observes NotFoundErr.
type Store interface {
	// Save replaces any prior record for the same (userID, purpose).
	Save(ctx context.Context, record *Record, ttl time.Duration) error
	// Consume verifies presentedHash against the stored record and deletes
	// it on success. Fails with NotFoundErr, ExpiredErr or MismatchErr.
	Consume(ctx context.Context, userID string, purpose Purpose, presentedHash [32]byte, now time.Time) error
}

// HashValue is the canonical digest used for storage and comparison.
func HashValue(value string) [32]byte {
	return sha256.Sum256([]byte(value))
}

// newMFACode draws a uniform 6-digit code, zero-padded.
func newMFACode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// newEmailToken returns an unguessable URL-safe token.
func newEmailToken() (string, error) {
	b := make([]byte, emailTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
