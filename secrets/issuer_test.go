package secrets_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/identity/accounts"
	"github.com/tasklane/identity/mailer/mailerfake"
	"github.com/tasklane/identity/secrets"
	"github.com/tasklane/identity/secrets/storefake"
)

const (
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
	testBaseURL   = "https://identity.example.com"
)

type issuerFixture struct {
	store  *storefake.FakeStore
	mailer *mailerfake.FakeMailer
	issuer *secrets.Issuer
}

func newIssuerFixture(t *testing.T, options ...secrets.IssuerOption) *issuerFixture {
	t.Helper()
	f := &issuerFixture{
		store:  storefake.New(),
		mailer: mailerfake.New(),
	}
	issuer, err := secrets.NewIssuer(f.store, f.mailer, testBaseURL, options...)
	require.NoError(t, err)
	f.issuer = issuer
	return f
}

func testAccount() *accounts.Account {
	return &accounts.Account{ID: testUserID, Email: testUserEmail}
}

func TestIssueMFACodeDeliversAndVerifies(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)
	require.Len(t, secret.Value, 6)
	require.Equal(t, secrets.MFACodeTTL, secret.ExpiresAt.Sub(secret.IssuedAt))

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)
	require.Equal(t, testUserEmail, sent.To)
	require.Equal(t, secret.Value, sent.Code)

	require.NoError(t, f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value))
}

func TestVerifyIsSingleUse(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	require.NoError(t, f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value))

	err = f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value)
	require.ErrorIs(t, err, secrets.NotFoundErr)
}

func TestVerifyRejectsWrongValue(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	err = f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, "000000")
	if secret.Value == "000000" {
		t.Skip("generated code collided with the fixed wrong guess")
	}
	require.ErrorIs(t, err, secrets.MismatchErr)

	// A wrong guess does not consume the secret.
	require.NoError(t, f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value))
}

func TestVerifyRejectsExpiredSecret(t *testing.T) {
	issuedAt := time.Now()
	f := newIssuerFixture(t, secrets.WithNowTime(func() time.Time { return issuedAt }))
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	late := newIssuerFixtureClock(t, f, issuedAt.Add(secrets.MFACodeTTL+time.Second))
	err = late.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value)
	require.ErrorIs(t, err, secrets.ExpiredErr)
}

// newIssuerFixtureClock rebuilds the issuer over the same store with a
// shifted clock.
func newIssuerFixtureClock(t *testing.T, f *issuerFixture, now time.Time) *secrets.Issuer {
	t.Helper()
	issuer, err := secrets.NewIssuer(f.store, f.mailer, testBaseURL,
		secrets.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)
	return issuer
}

func TestReissueInvalidatesPriorSecret(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	first, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	second, err := f.issuer.Resend(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Count())

	if first.Value != second.Value {
		err = f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, first.Value)
		require.ErrorIs(t, err, secrets.MismatchErr)
	}
	require.NoError(t, f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, second.Value))
}

func TestPurposesDoNotCrossVerify(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	code, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	err = f.issuer.Verify(ctx, testUserID, secrets.PurposeEmailVerify, code.Value)
	require.ErrorIs(t, err, secrets.NotFoundErr)
}

func TestIssueEmailVerifySendsLink(t *testing.T) {
	f := newIssuerFixture(t)
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeEmailVerify)
	require.NoError(t, err)
	require.Equal(t, secrets.DefaultEmailVerifyTTL, secret.ExpiresAt.Sub(secret.IssuedAt))

	sent, ok := f.mailer.LastLink()
	require.True(t, ok)
	require.Equal(t, testUserEmail, sent.To)
	require.Contains(t, sent.Link, testBaseURL+"/verify-email?")
	require.Contains(t, sent.Link, "userId="+testUserID)
	require.Contains(t, sent.Link, "secret=")
}

func TestDeliveryFailureDoesNotFailIssue(t *testing.T) {
	f := newIssuerFixture(t)
	f.mailer.Err = context.DeadlineExceeded
	ctx := context.Background()

	secret, err := f.issuer.Issue(ctx, testAccount(), secrets.PurposeMFACode)
	require.NoError(t, err)

	// The secret was persisted and stays verifiable despite the bounce.
	require.NoError(t, f.issuer.Verify(ctx, testUserID, secrets.PurposeMFACode, secret.Value))
}

func TestIssueUnknownPurposeFails(t *testing.T) {
	f := newIssuerFixture(t)
	_, err := f.issuer.Issue(context.Background(), testAccount(), secrets.Purpose("password-reset"))
	require.Error(t, err)
	require.Equal(t, 0, f.store.Count())
}
