package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/authz"
	"github.com/tasklane/identity/sessions"
	"github.com/tasklane/identity/workspaces"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyCurrentUser stores the resolved principal for the request
const ContextKeyCurrentUser ContextKey = "current_user"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the stack for JSON endpoints.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	stack := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.CorsMiddleware,
	}
	return append(stack, mw...)
}

// BrowserMiddleware is the stack for redirect-driven endpoints.
func (s *Server) BrowserMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	stack := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
	return append(stack, mw...)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			log.Info().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				respondError(w, http.StatusInternalServerError, "internal_error")
			}
		}()
		next(w, r)
	}
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			next(w, r)
			return
		}

		if s.config.CORS.OriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", s.config.CORS.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", s.config.CORS.AllowedHeaders)
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// RequireSession resolves the session cookie into a principal and injects it
// into the request context. Unauthenticated requests get a uniform 401.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			current, err := s.establisher.ResolveCurrent(r.Context(), r)
			if err != nil {
				log.Err(err).Msg("session resolution failed")
				respondError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			if current == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCurrentUser, current)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireSuperAdmin gates the tenant-administration surface on the account
// tier. It never consults workspace roles; the two axes stay separate.
func (s *Server) RequireSuperAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			current := CurrentUserFromContext(r.Context())
			if current == nil || !current.Account.IsSuperAdmin() {
				respondError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next(w, r)
		}
	}
}

// RequireWorkspaceRole gates a handler on the authorization table. The
// workspace comes from the {workspaceID} path value; a missing membership or
// undefined role fails closed.
func (s *Server) RequireWorkspaceRole(requirement authz.Requirement) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			current := CurrentUserFromContext(r.Context())
			if current == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			role, err := s.memberships.GetRole(r.Context(), r.PathValue("workspaceID"), current.Account.ID)
			if err != nil && !isNotFound(err) {
				log.Err(err).Msg("membership lookup failed")
				respondError(w, http.StatusInternalServerError, "internal_error")
				return
			}

			if !authz.Authorize(role, requirement) {
				respondError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next(w, r)
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, workspaces.NotFoundErr)
}

// CurrentUserFromContext returns the principal injected by RequireSession.
func CurrentUserFromContext(ctx context.Context) *sessions.CurrentUser {
	current, _ := ctx.Value(ContextKeyCurrentUser).(*sessions.CurrentUser)
	return current
}
