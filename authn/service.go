// Package authn orchestrates credential verification: password check,
// conditional MFA step-up and email-ownership confirmation. Every successful
// path converges on the session establisher.
package authn

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/accounts"
	"github.com/tasklane/identity/authn/ticketstore"
	"github.com/tasklane/identity/internal/cryptox"
	"github.com/tasklane/identity/secrets"
	"github.com/tasklane/identity/sessions"
)

// Status is the outcome of a login attempt. MFARequired is control flow,
// not a failure.
type Status string

const (
	StatusAuthenticated Status = "authenticated"
	StatusMFARequired   Status = "mfa-required"
)

// LoginResult carries either an established session or the pending id the
// client presents to complete step-up. It never carries credentials.
type LoginResult struct {
	Status    Status
	Session   sessions.Session
	PendingID string
}

// pendingTicket is the server-held context that lets step-up complete
// without the client resending the password. It lives encrypted in the
// ticket store for at most the MFA code's lifetime and is never logged.
type pendingTicket struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	IssuedAt int64  `json:"issued_at"`
}

type Service struct {
	accounts    accounts.Repo
	issuer      *secrets.Issuer
	establisher *sessions.Establisher
	tickets     ticketstore.Repo
	ticketKey   []byte
	nowTime     func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(
	accountRepo accounts.Repo,
	issuer *secrets.Issuer,
	establisher *sessions.Establisher,
	tickets ticketstore.Repo,
	ticketKey []byte,
	options ...ServiceOption,
) (*Service, error) {
	if accountRepo == nil {
		return nil, errors.New("[NewService] account repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] secret issuer is required")
	}
	if establisher == nil {
		return nil, errors.New("[NewService] session establisher is required")
	}
	if tickets == nil {
		return nil, errors.New("[NewService] ticket store is required")
	}
	if len(ticketKey) != 32 {
		return nil, errors.New("[NewService] ticket key must be 32 bytes")
	}

	service := &Service{
		accounts:    accountRepo,
		issuer:      issuer,
		establisher: establisher,
		tickets:     tickets,
		ticketKey:   ticketKey,
		nowTime:     time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login verifies the password and either establishes a session directly or
// suspends at pending-MFA. Failures are uniformly InvalidCredentialsErr.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, InvalidCredentialsErr
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.NotFoundErr) {
			return LoginResult{}, InvalidCredentialsErr
		}
		return LoginResult{}, errors.Wrap(err, "[Service.Login] accounts.GetByEmail")
	}

	if !accounts.CheckPasswordHash(password, account.PasswordHash) {
		return LoginResult{}, InvalidCredentialsErr
	}

	if !account.MFAEnabled {
		session, err := s.completeAuthentication(ctx, account.ID)
		if err != nil {
			return LoginResult{}, errors.Wrap(err, "[Service.Login] complete authentication")
		}
		return LoginResult{Status: StatusAuthenticated, Session: session}, nil
	}

	// MFA step-up: no session yet. The code travels out-of-band; the
	// password-checked context stays server-side under a random id.
	if _, err := s.issuer.Issue(ctx, account, secrets.PurposeMFACode); err != nil {
		return LoginResult{}, errors.Wrap(err, "[Service.Login] issue mfa code")
	}

	pendingID, err := s.storeTicket(ctx, account)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "[Service.Login] store pending ticket")
	}

	return LoginResult{Status: StatusMFARequired, PendingID: pendingID}, nil
}

// VerifyMFA checks the out-of-band code against the pending attempt and
// establishes the session the login suspended on. A mismatched code leaves
// both the code and the ticket live so the client can retry within the TTL;
// the code's atomic consume is what makes the attempt single-use.
func (s *Service) VerifyMFA(ctx context.Context, pendingID, code string) (sessions.Session, error) {
	if pendingID == "" || code == "" {
		return sessions.Session{}, InvalidOrExpiredSecretErr
	}

	ticket, err := s.peekTicket(ctx, pendingID)
	if err != nil {
		if errors.Is(err, ticketstore.NotFoundErr) {
			return sessions.Session{}, InvalidOrExpiredSecretErr
		}
		return sessions.Session{}, errors.Wrap(err, "[Service.VerifyMFA] peek ticket")
	}

	if err := s.issuer.Verify(ctx, ticket.UserID, secrets.PurposeMFACode, code); err != nil {
		if secrets.IsVerificationFailure(err) {
			// A consumed or expired code is terminal for the attempt; a
			// mismatch is not, the ticket stays for a retry.
			if !errors.Is(err, secrets.MismatchErr) {
				s.discardTicket(ctx, pendingID)
			}
			return sessions.Session{}, InvalidOrExpiredSecretErr
		}
		return sessions.Session{}, errors.Wrap(err, "[Service.VerifyMFA] verify code")
	}

	s.discardTicket(ctx, pendingID)

	session, err := s.completeAuthentication(ctx, ticket.UserID)
	if err != nil {
		return sessions.Session{}, errors.Wrap(err, "[Service.VerifyMFA] complete authentication")
	}
	return session, nil
}

// ConfirmEmail validates a magic-link (userId, secret) pair and marks the
// account verified. The account-level update is idempotent even though the
// secret itself is single-use.
func (s *Service) ConfirmEmail(ctx context.Context, userID, secret string) (*accounts.Account, sessions.Session, error) {
	if userID == "" || secret == "" {
		return nil, sessions.Session{}, VerificationFailedErr
	}

	if err := s.issuer.Verify(ctx, userID, secrets.PurposeEmailVerify, secret); err != nil {
		if secrets.IsVerificationFailure(err) {
			return nil, sessions.Session{}, VerificationFailedErr
		}
		return nil, sessions.Session{}, errors.Wrap(err, "[Service.ConfirmEmail] verify secret")
	}

	if err := MarkVerified(ctx, s.accounts, userID); err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Service.ConfirmEmail] mark verified")
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Service.ConfirmEmail] accounts.GetByID")
	}

	session, err := s.completeAuthentication(ctx, userID)
	if err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Service.ConfirmEmail] complete authentication")
	}
	return account, session, nil
}

// ResendVerification reissues the email-verify secret for an account,
// invalidating any outstanding one.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Service.ResendVerification] accounts.GetByID")
	}
	if account.EmailVerified {
		return nil
	}
	if _, err := s.issuer.Resend(ctx, account, secrets.PurposeEmailVerify); err != nil {
		return errors.Wrap(err, "[Service.ResendVerification] reissue secret")
	}
	return nil
}

// MarkVerified applies the idempotent email-ownership update. The federation
// bridge applies the identical update when a provider-verified login lands
// on an unverified account.
func MarkVerified(ctx context.Context, repo accounts.Repo, userID string) error {
	return repo.SetVerified(ctx, userID)
}

func (s *Service) completeAuthentication(ctx context.Context, userID string) (sessions.Session, error) {
	session, err := s.establisher.Mint(ctx, userID)
	if err != nil {
		return sessions.Session{}, err
	}
	if err := s.accounts.SetLastLogin(ctx, userID, s.nowTime()); err != nil {
		return sessions.Session{}, err
	}
	return session, nil
}

func (s *Service) storeTicket(ctx context.Context, account *accounts.Account) (string, error) {
	ticket := pendingTicket{
		UserID:   account.ID,
		Email:    account.Email,
		IssuedAt: s.nowTime().Unix(),
	}

	ciphertext, nonce, err := cryptox.Seal(ticket, s.ticketKey)
	if err != nil {
		return "", err
	}

	pendingID := uuid.New().String()
	err = s.tickets.Save(ctx, pendingID, ticketstore.Ticket{Ciphertext: ciphertext, Nonce: nonce}, secrets.MFACodeTTL)
	if err != nil {
		return "", err
	}
	return pendingID, nil
}

// discardTicket removes a ticket whose attempt ended. Failures are logged
// only: the TTL reaps leftovers and an orphaned ticket guards no secret.
func (s *Service) discardTicket(ctx context.Context, pendingID string) {
	if err := s.tickets.Delete(ctx, pendingID); err != nil {
		log.Err(err).Msg("failed to discard pending ticket")
	}
}

func (s *Service) peekTicket(ctx context.Context, pendingID string) (pendingTicket, error) {
	stored, err := s.tickets.Peek(ctx, pendingID)
	if err != nil {
		return pendingTicket{}, err
	}

	var ticket pendingTicket
	if err := cryptox.Open(stored.Ciphertext, stored.Nonce, s.ticketKey, &ticket); err != nil {
		// Undecryptable tickets are indistinguishable from absent ones.
		return pendingTicket{}, ticketstore.NotFoundErr
	}
	return ticket, nil
}
