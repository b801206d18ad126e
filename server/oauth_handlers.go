package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const signInErrorRedirect = RouteSignIn + "?error=oauth_failed"

// OAuthBeginHandler starts a federation flow and redirects the browser to
// the provider's consent page.
func (s *Server) OAuthBeginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.bridge.Begin(r.Context(), r.PathValue("provider"))
		if err != nil {
			log.Err(err).Msg("oauth begin failed")
			http.Redirect(w, r, signInErrorRedirect, http.StatusFound)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler finishes the federation flow. Any failure, whatever
// its cause, sends the browser to the sign-in page with a single generic
// error and leaves no session behind.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		if state == "" || code == "" {
			http.Redirect(w, r, signInErrorRedirect, http.StatusFound)
			return
		}

		account, session, err := s.bridge.Complete(r.Context(), state, code)
		if err != nil {
			log.Err(err).Msg("oauth callback failed")
			http.Redirect(w, r, signInErrorRedirect, http.StatusFound)
			return
		}

		s.establisher.SetCookie(w, session)

		destination := RouteDashboard
		if account.IsSuperAdmin() {
			destination = RouteSuperAdmin
		}
		http.Redirect(w, r, destination, http.StatusFound)
	}
}
