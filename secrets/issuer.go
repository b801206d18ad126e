package secrets

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/accounts"
	"github.com/tasklane/identity/mailer"
)

// Issuer mints ephemeral secrets, persists them and triggers out-of-band
// delivery. Delivery failure is logged and the secret kept: the caller can
// resend without invalidating the login attempt.
type Issuer struct {
	store          Store
	mailer         mailer.Mailer
	publicBaseURL  string
	emailVerifyTTL time.Duration
	nowTime        func() time.Time
}

type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

// WithEmailVerifyTTL overrides the verification-link lifetime.
func WithEmailVerifyTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.emailVerifyTTL = ttl
	}
}

func NewIssuer(store Store, m mailer.Mailer, publicBaseURL string, options ...IssuerOption) (*Issuer, error) {
	if store == nil {
		return nil, errors.New("[NewIssuer] store is required")
	}
	if m == nil {
		return nil, errors.New("[NewIssuer] mailer is required")
	}

	issuer := &Issuer{
		store:          store,
		mailer:         m,
		publicBaseURL:  publicBaseURL,
		emailVerifyTTL: DefaultEmailVerifyTTL,
		nowTime:        time.Now,
	}

	for _, opt := range options {
		opt(issuer)
	}

	return issuer, nil
}

// Issue generates a value appropriate to purpose, persists it (replacing any
// outstanding secret for the same account and purpose) and dispatches it to
// the account's email address.
func (i *Issuer) Issue(ctx context.Context, account *accounts.Account, purpose Purpose) (Secret, error) {
	var value string
	var ttl time.Duration
	var err error

	switch purpose {
	case PurposeMFACode:
		value, err = newMFACode()
		ttl = MFACodeTTL
	case PurposeEmailVerify:
		value, err = newEmailToken()
		ttl = i.emailVerifyTTL
	default:
		return Secret{}, errors.Errorf("[Issuer.Issue] unknown purpose %q", purpose)
	}
	if err != nil {
		return Secret{}, errors.Wrap(err, "[Issuer.Issue] generate value")
	}

	now := i.nowTime()
	secret := Secret{
		UserID:    account.ID,
		Purpose:   purpose,
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	record := &Record{
		UserID:    secret.UserID,
		Purpose:   secret.Purpose,
		ValueHash: HashValue(secret.Value),
		IssuedAt:  secret.IssuedAt.Unix(),
		ExpiresAt: secret.ExpiresAt.Unix(),
	}
	if err := i.store.Save(ctx, record, ttl); err != nil {
		return Secret{}, errors.Wrap(err, "[Issuer.Issue] store.Save")
	}

	i.dispatch(ctx, account, secret)
	return secret, nil
}

// Verify checks a presented value against the outstanding secret and
// consumes it on success. A consumed or expired secret never verifies again.
func (i *Issuer) Verify(ctx context.Context, userID string, purpose Purpose, presented string) error {
	err := i.store.Consume(ctx, userID, purpose, HashValue(presented), i.nowTime())
	if err != nil {
		if IsVerificationFailure(err) {
			return err
		}
		return errors.Wrap(err, "[Issuer.Verify] store.Consume")
	}
	return nil
}

// Resend re-issues the outstanding secret for (account, purpose). The prior
// secret is invalidated as a side effect of Issue's replace semantics.
func (i *Issuer) Resend(ctx context.Context, account *accounts.Account, purpose Purpose) (Secret, error) {
	return i.Issue(ctx, account, purpose)
}

func (i *Issuer) dispatch(ctx context.Context, account *accounts.Account, secret Secret) {
	var err error
	switch secret.Purpose {
	case PurposeMFACode:
		err = i.mailer.SendMFACode(ctx, account.Email, secret.Value)
	case PurposeEmailVerify:
		err = i.mailer.SendVerificationLink(ctx, account.Email, i.verificationLink(account.ID, secret.Value))
	}
	if err != nil {
		// Deliverability is recoverable: the secret stays valid and can be
		// resent. Never fail the issuing call over it.
		log.Err(err).Str("user_id", account.ID).Str("purpose", string(secret.Purpose)).
			Msg("out-of-band secret delivery failed")
	}
}

func (i *Issuer) verificationLink(userID, secret string) string {
	v := url.Values{}
	v.Set("userId", userID)
	v.Set("secret", secret)
	return i.publicBaseURL + "/verify-email?" + v.Encode()
}
