package authn_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/identity/accounts"
	accountfake "github.com/tasklane/identity/accounts/repofake"
	"github.com/tasklane/identity/authn"
	"github.com/tasklane/identity/authn/ticketstore"
	"github.com/tasklane/identity/mailer/mailerfake"
	"github.com/tasklane/identity/secrets"
	"github.com/tasklane/identity/secrets/storefake"
	"github.com/tasklane/identity/sessions"
	sessionfake "github.com/tasklane/identity/sessions/repofake"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
	testBaseURL      = "https://identity.example.com"
)

type fixture struct {
	accountRepo *accountfake.FakeAccountRepo
	sessionRepo *sessionfake.FakeSessionRepo
	secretStore *storefake.FakeStore
	mailer      *mailerfake.FakeMailer
	tickets     *ticketstore.InMemoryRepo
	establisher *sessions.Establisher
	service     *authn.Service
}

func ticketKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accountRepo: accountfake.NewFakeAccountRepo(),
		sessionRepo: sessionfake.NewFakeSessionRepo(),
		secretStore: storefake.New(),
		mailer:      mailerfake.New(),
		tickets:     ticketstore.NewInMemoryRepo(),
	}

	issuer, err := secrets.NewIssuer(f.secretStore, f.mailer, testBaseURL)
	require.NoError(t, err)

	f.establisher, err = sessions.NewEstablisher(f.sessionRepo, f.accountRepo)
	require.NoError(t, err)

	f.service, err = authn.NewService(f.accountRepo, issuer, f.establisher, f.tickets, ticketKey())
	require.NoError(t, err)
	return f
}

func (f *fixture) createAccount(t *testing.T, mfaEnabled bool) *accounts.Account {
	t.Helper()
	hash, err := accounts.HashPassword(testUserPassword)
	require.NoError(t, err)

	account := &accounts.Account{
		Email:        testUserEmail,
		PasswordHash: hash,
		MFAEnabled:   mfaEnabled,
		Tier:         accounts.TierStandard,
	}
	require.NoError(t, f.accountRepo.Create(context.Background(), account))
	return account
}

func TestLoginWithoutMFAEstablishesSession(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, false)

	result, err := f.service.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, authn.StatusAuthenticated, result.Status)
	require.Empty(t, result.PendingID)
	require.NotEmpty(t, result.Session.Secret)
	require.Equal(t, account.ID, result.Session.UserID)
	require.Equal(t, 1, f.sessionRepo.Count())

	updated, err := f.accountRepo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.False(t, updated.LastLogin.IsZero())

	// With MFA off, no code is issued or mailed.
	_, sent := f.mailer.LastCode()
	require.False(t, sent)
	require.Equal(t, 0, f.secretStore.Count())
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, false)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testUserPassword},
		{"wrong password", testUserEmail, "wrong-password"},
		{"empty email", "", testUserPassword},
		{"empty password", testUserEmail, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Login(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, authn.InvalidCredentialsErr)
		})
	}
	require.Equal(t, 0, f.sessionRepo.Count())
}

func TestLoginWithMFASuspendsWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, true)

	result, err := f.service.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, authn.StatusMFARequired, result.Status)
	require.NotEmpty(t, result.PendingID)
	require.Empty(t, result.Session.Secret)

	// No session until the code is verified; the code went out by mail.
	require.Equal(t, 0, f.sessionRepo.Count())
	sent, ok := f.mailer.LastCode()
	require.True(t, ok)
	require.Equal(t, testUserEmail, sent.To)
	require.Len(t, sent.Code, 6)
}

func TestVerifyMFACompletesLogin(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, true)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)

	session, err := f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.UserID)
	require.Equal(t, 1, f.sessionRepo.Count())
}

func TestVerifyMFAWrongCodeAllowsRetry(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, true)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)
	wrong := "000000"
	if sent.Code == wrong {
		wrong = "000001"
	}

	_, err = f.service.VerifyMFA(ctx, result.PendingID, wrong)
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)
	require.Equal(t, 0, f.sessionRepo.Count())

	// A mistyped code is not terminal: the correct code still completes
	// the attempt within the TTL.
	session, err := f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.UserID)
	require.Equal(t, 1, f.sessionRepo.Count())
}

func TestVerifyMFAConsumedCodeDiscardsTicket(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, true)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)

	// Consume the code out-of-band; the pending attempt can never finish.
	hash := secrets.HashValue(sent.Code)
	require.NoError(t, f.secretStore.Consume(ctx, account.ID, secrets.PurposeMFACode, hash, time.Now()))
	_, err = f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)

	// The terminal outcome discarded the ticket as well.
	_, err = f.tickets.Peek(ctx, result.PendingID)
	require.ErrorIs(t, err, ticketstore.NotFoundErr)
}

func TestVerifyMFAUnknownPendingID(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, true)

	_, err := f.service.VerifyMFA(context.Background(), "no-such-pending-id", "123456")
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)
}

func TestVerifyMFAReplayAfterSuccessFails(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, true)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)

	_, err = f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.NoError(t, err)

	_, err = f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)
}

func TestVerifyMFAExpiredTicket(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, true)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	sent, ok := f.mailer.LastCode()
	require.True(t, ok)

	f.tickets.SetNowTime(func() time.Time { return time.Now().Add(secrets.MFACodeTTL + time.Second) })

	_, err = f.service.VerifyMFA(ctx, result.PendingID, sent.Code)
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)
}

func TestRelogRegeneratesCodeAndInvalidatesPrior(t *testing.T) {
	f := newFixture(t)
	f.createAccount(t, true)
	ctx := context.Background()

	_, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	first, ok := f.mailer.LastCode()
	require.True(t, ok)

	second, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	latest, ok := f.mailer.LastCode()
	require.True(t, ok)

	if first.Code == latest.Code {
		t.Skip("regenerated code collided with the first")
	}

	// Only the latest code verifies; the first was replaced in the store.
	_, err = f.service.VerifyMFA(ctx, second.PendingID, first.Code)
	require.ErrorIs(t, err, authn.InvalidOrExpiredSecretErr)
}

func TestConfirmEmailVerifiesAccountAndLogsIn(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, false)
	ctx := context.Background()

	require.NoError(t, f.service.ResendVerification(ctx, account.ID))
	sent, ok := f.mailer.LastLink()
	require.True(t, ok)

	secret := secretFromLink(t, sent.Link)

	confirmed, session, err := f.service.ConfirmEmail(ctx, account.ID, secret)
	require.NoError(t, err)
	require.True(t, confirmed.EmailVerified)
	require.Equal(t, accounts.VerificationVerified, confirmed.VerificationStatus)
	require.Equal(t, account.ID, session.UserID)
	require.Equal(t, 1, f.sessionRepo.Count())
}

func TestConfirmEmailSecretIsSingleUse(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, false)
	ctx := context.Background()

	require.NoError(t, f.service.ResendVerification(ctx, account.ID))
	sent, ok := f.mailer.LastLink()
	require.True(t, ok)
	secret := secretFromLink(t, sent.Link)

	_, _, err := f.service.ConfirmEmail(ctx, account.ID, secret)
	require.NoError(t, err)

	// The account stays verified, but the link is spent.
	_, _, err = f.service.ConfirmEmail(ctx, account.ID, secret)
	require.ErrorIs(t, err, authn.VerificationFailedErr)

	verified, err := f.accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, verified.EmailVerified)
}

func TestConfirmEmailRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, false)
	ctx := context.Background()

	_, _, err := f.service.ConfirmEmail(ctx, account.ID, "not-the-secret")
	require.ErrorIs(t, err, authn.VerificationFailedErr)

	_, _, err = f.service.ConfirmEmail(ctx, "", "secret")
	require.ErrorIs(t, err, authn.VerificationFailedErr)

	_, _, err = f.service.ConfirmEmail(ctx, account.ID, "")
	require.ErrorIs(t, err, authn.VerificationFailedErr)
}

func TestResendVerificationSkipsVerifiedAccounts(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, false)
	ctx := context.Background()

	require.NoError(t, f.accountRepo.SetVerified(ctx, account.ID))
	require.NoError(t, f.service.ResendVerification(ctx, account.ID))

	_, ok := f.mailer.LastLink()
	require.False(t, ok)
}

func secretFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	secret := u.Query().Get("secret")
	require.NotEmpty(t, secret)
	return secret
}
