package accounts

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Tier represents an account-level capability set. It is orthogonal to any
// workspace role: tier gates tenant administration surfaces, workspace roles
// gate operations inside a single workspace.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierAdmin      Tier = "admin"
	TierSuperAdmin Tier = "super_admin"
)

// ParseTier validates a tier value at the boundary. Unknown values are
// rejected rather than defaulted so a corrupted record can never gain
// capabilities.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierStandard, TierAdmin, TierSuperAdmin:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown account tier %q", s)
}

// VerificationStatus mirrors the account's email-ownership state.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
)

type Account struct {
	ID                 string             `json:"id,omitempty"`
	Email              string             `json:"email,omitempty"`
	PasswordHash       string             `json:"-"` // never serialize
	EmailVerified      bool               `json:"email_verified"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	MFAEnabled         bool               `json:"mfa_enabled"`
	Tier               Tier               `json:"tier,omitempty"`
	ImageRef           string             `json:"image_ref,omitempty"` // opaque storage key, URL, or data URI
	CreatedAt          time.Time          `json:"created_at,omitempty"`
	LastLogin          time.Time          `json:"last_login,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsSuperAdmin reports whether the account sits in the tenant-administration
// tier. Evaluated once at session resolution; never consulted by workspace
// role checks.
func (a *Account) IsSuperAdmin() bool {
	return a.Tier == TierSuperAdmin
}

// ImageRefIsStorageKey reports whether ImageRef needs a signed URL before it
// can be handed to a client. URLs and inline data URIs pass through as-is.
func (a *Account) ImageRefIsStorageKey() bool {
	if a.ImageRef == "" {
		return false
	}
	return !strings.HasPrefix(a.ImageRef, "http://") &&
		!strings.HasPrefix(a.ImageRef, "https://") &&
		!strings.HasPrefix(a.ImageRef, "data:")
}
