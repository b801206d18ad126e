package secrets

import "errors"

var (
	NotFoundErr = errors.New("secret not found")
	ExpiredErr  = errors.New("secret expired")
	MismatchErr = errors.New("secret mismatch")
)

// IsVerificationFailure reports whether err is one of the three verify
// outcomes. Callers collapse all of them into a single user-facing category
// so the sub-case never leaks across the trust boundary.
func IsVerificationFailure(err error) bool {
	return errors.Is(err, NotFoundErr) || errors.Is(err, ExpiredErr) || errors.Is(err, MismatchErr)
}
