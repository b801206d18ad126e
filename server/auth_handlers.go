package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/authn"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status    string `json:"status"`
	PendingID string `json:"pendingId,omitempty"`
}

// LoginHandler runs the password check. With MFA off it establishes the
// session directly; with MFA on it returns the pending id the client
// presents to verify-mfa. No cookie is set in the pending case.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		result, err := s.authn.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, authn.InvalidCredentialsErr) {
				respondError(w, http.StatusUnauthorized, "invalid_credentials")
				return
			}
			log.Err(err).Msg("login failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		if result.Status == authn.StatusMFARequired {
			respondJSON(w, http.StatusOK, loginResponse{Status: "mfa-required", PendingID: result.PendingID})
			return
		}

		s.establisher.SetCookie(w, result.Session)
		respondJSON(w, http.StatusOK, loginResponse{Status: "authenticated"})
	}
}

type verifyMFARequest struct {
	PendingID string `json:"pendingId"`
	Code      string `json:"code"`
}

// VerifyMFAHandler completes a pending login. The pending ticket and the
// code are both single-use; any failure sends the client back to login.
func (s *Server) VerifyMFAHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyMFARequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		session, err := s.authn.VerifyMFA(r.Context(), req.PendingID, req.Code)
		if err != nil {
			if errors.Is(err, authn.InvalidOrExpiredSecretErr) {
				respondError(w, http.StatusUnauthorized, "invalid_or_expired_code")
				return
			}
			log.Err(err).Msg("mfa verification failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		s.establisher.SetCookie(w, session)
		respondJSON(w, http.StatusOK, loginResponse{Status: "authenticated"})
	}
}

type verifyEmailRequest struct {
	UserID string `json:"userId"`
	Secret string `json:"secret"`
}

// VerifyEmailHandler confirms the magic-link pair and establishes a session.
// The account update is idempotent; the secret is not.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		_, session, err := s.authn.ConfirmEmail(r.Context(), req.UserID, req.Secret)
		if err != nil {
			if errors.Is(err, authn.VerificationFailedErr) {
				respondError(w, http.StatusUnauthorized, "verification_failed")
				return
			}
			log.Err(err).Msg("email verification failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		s.establisher.SetCookie(w, session)
		respondJSON(w, http.StatusOK, loginResponse{Status: "authenticated"})
	}
}

// ResendVerificationHandler reissues the verification link for the current
// user, invalidating any outstanding one.
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := CurrentUserFromContext(r.Context())
		if err := s.authn.ResendVerification(r.Context(), current.Account.ID); err != nil {
			log.Err(err).Msg("resend verification failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.establisher.Clear(r.Context(), w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the resolved principal, profile image materialized.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, CurrentUserFromContext(r.Context()))
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
