package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/authz"
	"github.com/tasklane/identity/workspaces"
)

type authorizeResponse struct {
	Allowed bool       `json:"allowed"`
	Role    authz.Role `json:"role,omitempty"`
}

// WorkspaceAuthorizeHandler is the decision endpoint downstream services
// consult. It resolves the caller's role in the workspace and evaluates the
// requested permission, or just reports the role when no permission is
// asked for. No membership means denied, never an error.
func (s *Server) WorkspaceAuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := CurrentUserFromContext(r.Context())
		workspaceID := r.PathValue("workspaceID")

		role, err := s.memberships.GetRole(r.Context(), workspaceID, current.Account.ID)
		if err != nil {
			if errors.Is(err, workspaces.NotFoundErr) {
				respondJSON(w, http.StatusOK, authorizeResponse{Allowed: false})
				return
			}
			log.Err(err).Msg("membership lookup failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		if permission := r.URL.Query().Get("permission"); permission != "" {
			allowed := authz.Authorize(role, authz.Can(authz.Permission(permission)))
			resp := authorizeResponse{Allowed: allowed}
			if allowed {
				resp.Role = role
			}
			respondJSON(w, http.StatusOK, resp)
			return
		}

		respondJSON(w, http.StatusOK, authorizeResponse{Allowed: true, Role: role})
	}
}

type workspaceListResponse struct {
	Memberships []workspaces.Membership `json:"memberships"`
}

func (s *Server) WorkspaceListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := CurrentUserFromContext(r.Context())
		memberships, err := s.memberships.ListForUser(r.Context(), current.Account.ID)
		if err != nil {
			log.Err(err).Msg("membership list failed")
			respondError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if memberships == nil {
			memberships = []workspaces.Membership{}
		}
		respondJSON(w, http.StatusOK, workspaceListResponse{Memberships: memberships})
	}
}

// SuperAdminOverviewHandler is gated by tier, not workspace role. The
// middleware has already rejected non super-admin accounts.
func (s *Server) SuperAdminOverviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := CurrentUserFromContext(r.Context())
		respondJSON(w, http.StatusOK, map[string]any{
			"tier":  current.Account.Tier,
			"email": current.Account.Email,
		})
	}
}
