package federation

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Identity is the normalized result of a provider exchange.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// Provider abstracts one external identity provider. Exchange turns the
// provider's one-time code into a verified identity or fails; it never
// returns partial results.
type Provider interface {
	Name() string
	AuthCodeURL(state, nonce, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier, nonce string) (Identity, error)
}

// OIDCProvider implements Provider for any OpenID Connect issuer.
type OIDCProvider struct {
	name     string
	provider *oidc.Provider
	config   *oauth2.Config
}

func NewOIDCProvider(ctx context.Context, name, issuerURL, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewOIDCProvider] discover issuer for %s", name)
	}

	return &OIDCProvider{
		name:     name,
		provider: provider,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (p *OIDCProvider) Name() string { return p.name }

func (p *OIDCProvider) AuthCodeURL(state, nonce, codeVerifier string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code, codeVerifier, nonce string) (Identity, error) {
	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return Identity{}, errors.Wrap(err, "[OIDCProvider.Exchange] token exchange")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Identity{}, errors.New("[OIDCProvider.Exchange] no ID token in response")
	}

	idToken, err := p.provider.Verifier(&oidc.Config{ClientID: p.config.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, errors.Wrap(err, "[OIDCProvider.Exchange] ID token verification")
	}

	var claims struct {
		Nonce         string `json:"nonce"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, errors.Wrap(err, "[OIDCProvider.Exchange] extract claims")
	}

	if claims.Nonce != nonce {
		return Identity{}, errors.New("[OIDCProvider.Exchange] nonce mismatch")
	}
	if claims.Email == "" {
		return Identity{}, errors.New("[OIDCProvider.Exchange] provider returned no email")
	}

	return Identity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// randomString creates a random base64url string.
func randomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// codeChallenge creates a PKCE S256 challenge from a verifier.
func codeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
