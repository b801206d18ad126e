package postgresrepo

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/tasklane/identity/authz"
	"github.com/tasklane/identity/workspaces"
)

var _ workspaces.Repo = (*PostgresRepo)(nil)

type PostgresRepo struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetRole(ctx context.Context, workspaceID, userID string) (authz.Role, error) {
	query := `SELECT role FROM workspace_memberships WHERE workspace_id = $1 AND user_id = $2`

	var stored string
	err := r.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", workspaces.NotFoundErr
		}
		return "", pkgerrors.Wrap(err, "[PostgresRepo.GetRole] query membership")
	}

	role, ok := authz.ParseRole(stored)
	if !ok {
		// An unrecognized stored role must not authorize anything.
		return "", workspaces.NotFoundErr
	}
	return role, nil
}

func (r *PostgresRepo) ListForUser(ctx context.Context, userID string) ([]workspaces.Membership, error) {
	query := `SELECT workspace_id, user_id, role, joined_at
		FROM workspace_memberships WHERE user_id = $1 ORDER BY joined_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[PostgresRepo.ListForUser] query memberships")
	}
	defer rows.Close()

	var memberships []workspaces.Membership
	for rows.Next() {
		var m workspaces.Membership
		var stored string
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &stored, &m.JoinedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "[PostgresRepo.ListForUser] scan membership")
		}
		if role, ok := authz.ParseRole(stored); ok {
			m.Role = role
			memberships = append(memberships, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "[PostgresRepo.ListForUser] rows")
	}
	return memberships, nil
}
