package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/accounts"
)

// ImageSigner materializes a time-bound URL for an opaque storage key.
type ImageSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// CurrentUser is the resolved principal handed to downstream consumers.
type CurrentUser struct {
	Account  accounts.Account `json:"account"`
	ImageURL string           `json:"image_url,omitempty"`
	Session  Session          `json:"-"`
}

// Establisher mints sessions and sets the access cookie. Cookie attributes
// are fixed policy: httponly, secure, SameSite=Strict, path=/.
type Establisher struct {
	sessions Repo
	accounts accounts.Repo
	signer   ImageSigner
	ttl      time.Duration
	nowTime  func() time.Time
}

type EstablisherOption func(*Establisher)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EstablisherOption {
	return func(e *Establisher) {
		e.nowTime = nowFunc
	}
}

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) EstablisherOption {
	return func(e *Establisher) {
		e.ttl = ttl
	}
}

// WithImageSigner enables signed profile-image URLs on resolution.
func WithImageSigner(signer ImageSigner) EstablisherOption {
	return func(e *Establisher) {
		e.signer = signer
	}
}

func NewEstablisher(sessionRepo Repo, accountRepo accounts.Repo, options ...EstablisherOption) (*Establisher, error) {
	if sessionRepo == nil {
		return nil, errors.New("[NewEstablisher] session repo is required")
	}
	if accountRepo == nil {
		return nil, errors.New("[NewEstablisher] account repo is required")
	}

	establisher := &Establisher{
		sessions: sessionRepo,
		accounts: accountRepo,
		ttl:      DefaultTTL,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(establisher)
	}

	return establisher, nil
}

// Mint creates and persists a session without touching the response. Callers
// that hold the ResponseWriter follow up with SetCookie; splitting the two
// keeps the authentication services HTTP-free.
func (e *Establisher) Mint(ctx context.Context, userID string) (Session, error) {
	secret, err := NewSecret()
	if err != nil {
		return Session{}, errors.Wrap(err, "[Establisher.Mint] generate secret")
	}

	now := e.nowTime()
	session := Session{
		Secret:    secret,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.sessions.Save(ctx, &session); err != nil {
		return Session{}, errors.Wrap(err, "[Establisher.Mint] sessions.Save")
	}
	return session, nil
}

// SetCookie writes the access cookie for an established session.
func (e *Establisher) SetCookie(w http.ResponseWriter, session Session) {
	e.setCookie(w, session.Secret, int(session.ExpiresAt.Sub(e.nowTime()).Seconds()))
}

// Establish mints a session for userID and sets the access cookie. Each
// completed authentication path ends here, regardless of how it
// authenticated.
func (e *Establisher) Establish(ctx context.Context, w http.ResponseWriter, userID string) (Session, error) {
	session, err := e.Mint(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	e.SetCookie(w, session)
	return session, nil
}

// Clear deletes the session named by the request cookie and expires the
// cookie client-side.
func (e *Establisher) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if err := e.sessions.Delete(ctx, cookie.Value); err != nil {
			log.Err(err).Msg("failed to delete session on logout")
		}
	}
	e.setCookie(w, "", -1)
}

// ResolveCurrent turns the request cookie into a principal. Absence or
// invalidity of the cookie yields (nil, nil): unauthenticated is a state,
// not an error.
func (e *Establisher) ResolveCurrent(ctx context.Context, r *http.Request) (*CurrentUser, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := e.sessions.Get(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, NotFoundErr) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Establisher.ResolveCurrent] sessions.Get")
	}
	if session.Expired(e.nowTime()) {
		_ = e.sessions.Delete(ctx, session.Secret)
		return nil, nil
	}

	account, err := e.accounts.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, accounts.NotFoundErr) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Establisher.ResolveCurrent] accounts.GetByID")
	}

	current := &CurrentUser{Account: *account, Session: *session}
	current.ImageURL = e.resolveImageURL(ctx, account)
	return current, nil
}

func (e *Establisher) resolveImageURL(ctx context.Context, account *accounts.Account) string {
	if !account.ImageRefIsStorageKey() {
		return account.ImageRef
	}
	if e.signer == nil {
		return ""
	}
	signed, err := e.signer.SignedURL(ctx, account.ImageRef)
	if err != nil {
		// Leave the field unresolved rather than failing the resolution.
		log.Err(err).Str("user_id", account.ID).Msg("failed to sign profile image URL")
		return ""
	}
	return signed
}

func (e *Establisher) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}
