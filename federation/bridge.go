// Package federation exchanges a provider-issued one-time code for a local
// session and normalizes the resulting account to the password-flow
// invariants: email verified, tier populated.
package federation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tasklane/identity/accounts"
	"github.com/tasklane/identity/sessions"
)

// FailedErr is the only federation error category that crosses the trust
// boundary; the specific exchange failure stays in the logs.
var FailedErr = errors.New("federation failed")

var UnknownProviderErr = errors.New("unknown federation provider")

type Bridge struct {
	providers   map[string]Provider
	states      StateRepo
	accounts    accounts.Repo
	establisher *sessions.Establisher
	nowTime     func() time.Time
}

type BridgeOption func(*Bridge)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.nowTime = nowFunc
	}
}

func NewBridge(states StateRepo, accountRepo accounts.Repo, establisher *sessions.Establisher, providers []Provider, options ...BridgeOption) (*Bridge, error) {
	if states == nil {
		return nil, errors.New("[NewBridge] state repo is required")
	}
	if accountRepo == nil {
		return nil, errors.New("[NewBridge] account repo is required")
	}
	if establisher == nil {
		return nil, errors.New("[NewBridge] session establisher is required")
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	bridge := &Bridge{
		providers:   byName,
		states:      states,
		accounts:    accountRepo,
		establisher: establisher,
		nowTime:     time.Now,
	}

	for _, opt := range options {
		opt(bridge)
	}

	return bridge, nil
}

// Begin constructs the provider authorization URL and records the flow
// state under a fresh random state value. No local account state is touched.
func (b *Bridge) Begin(ctx context.Context, providerName string) (string, error) {
	provider, ok := b.providers[providerName]
	if !ok {
		return "", UnknownProviderErr
	}

	state, err := randomString(32)
	if err != nil {
		return "", errors.Wrap(err, "[Bridge.Begin] generate state")
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", errors.Wrap(err, "[Bridge.Begin] generate nonce")
	}
	codeVerifier, err := randomString(32)
	if err != nil {
		return "", errors.Wrap(err, "[Bridge.Begin] generate code verifier")
	}

	flow := &FlowState{
		Provider:     providerName,
		Nonce:        nonce,
		CodeVerifier: codeVerifier,
		CreatedAt:    b.nowTime(),
	}
	if err := b.states.Save(ctx, state, flow); err != nil {
		return "", errors.Wrap(err, "[Bridge.Begin] save flow state")
	}

	return provider.AuthCodeURL(state, flow.Nonce, flow.CodeVerifier), nil
}

// Complete consumes the callback: the flow state is taken (replays fail),
// the one-time code exchanged and verified, the local account located or
// provisioned, the verification invariant applied, and a session minted.
func (b *Bridge) Complete(ctx context.Context, state, code string) (*accounts.Account, sessions.Session, error) {
	if state == "" || code == "" {
		return nil, sessions.Session{}, FailedErr
	}

	flow, err := b.states.Take(ctx, state)
	if err != nil {
		if errors.Is(err, StateNotFoundErr) {
			return nil, sessions.Session{}, FailedErr
		}
		return nil, sessions.Session{}, errors.Wrap(err, "[Bridge.Complete] take flow state")
	}

	provider, ok := b.providers[flow.Provider]
	if !ok {
		return nil, sessions.Session{}, FailedErr
	}

	identity, err := provider.Exchange(ctx, code, flow.CodeVerifier, flow.Nonce)
	if err != nil {
		// Exchange detail is for the logs only.
		return nil, sessions.Session{}, errors.Wrap(FailedErr, err.Error())
	}

	account, err := b.findOrProvision(ctx, identity)
	if err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Bridge.Complete] resolve account")
	}

	// Provider-verified emails are auto-confirmed: the identical idempotent
	// update the email-ownership verifier applies.
	if !account.EmailVerified {
		if err := b.accounts.SetVerified(ctx, account.ID); err != nil {
			return nil, sessions.Session{}, errors.Wrap(err, "[Bridge.Complete] set verified")
		}
		account.EmailVerified = true
		account.VerificationStatus = accounts.VerificationVerified
	}

	session, err := b.establisher.Mint(ctx, account.ID)
	if err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Bridge.Complete] mint session")
	}
	if err := b.accounts.SetLastLogin(ctx, account.ID, b.nowTime()); err != nil {
		return nil, sessions.Session{}, errors.Wrap(err, "[Bridge.Complete] set last login")
	}

	return account, session, nil
}

func (b *Bridge) findOrProvision(ctx context.Context, identity Identity) (*accounts.Account, error) {
	account, err := b.accounts.GetByEmail(ctx, identity.Email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, accounts.NotFoundErr) {
		return nil, err
	}

	// First federated login: provision a standard-tier account with no
	// local password.
	account = &accounts.Account{
		Email:              identity.Email,
		Tier:               accounts.TierStandard,
		VerificationStatus: accounts.VerificationUnverified,
		CreatedAt:          b.nowTime(),
	}
	if err := b.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
