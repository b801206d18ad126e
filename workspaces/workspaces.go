// Package workspaces exposes the membership relation the authorization gate
// evaluates. Memberships are created by the workspace service, not here.
package workspaces

import (
	"context"
	"errors"
	"time"

	"github.com/tasklane/identity/authz"
)

var NotFoundErr = errors.New("membership not found")

type Membership struct {
	WorkspaceID string     `json:"workspace_id"`
	UserID      string     `json:"user_id"`
	Role        authz.Role `json:"role"`
	JoinedAt    time.Time  `json:"joined_at,omitempty"`
}

type Repo interface {
	// GetRole resolves a user's role inside one workspace. A missing
	// membership returns NotFoundErr; the gate treats that as fail-closed.
	GetRole(ctx context.Context, workspaceID, userID string) (authz.Role, error)
	ListForUser(ctx context.Context, userID string) ([]Membership, error)
}
