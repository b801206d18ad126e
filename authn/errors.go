package authn

import "errors"

var (
	// InvalidCredentialsErr deliberately covers both unknown-user and
	// wrong-password so responses cannot be used for enumeration.
	InvalidCredentialsErr = errors.New("invalid credentials")

	// InvalidOrExpiredSecretErr collapses not-found, expired and mismatch
	// into the single category that crosses the trust boundary.
	InvalidOrExpiredSecretErr = errors.New("invalid or expired secret")

	VerificationFailedErr = errors.New("verification failed")
)
