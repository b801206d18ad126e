package repofake

import (
	"context"
	"sync"

	"github.com/tasklane/identity/authz"
	"github.com/tasklane/identity/workspaces"
)

var _ workspaces.Repo = (*FakeMembershipRepo)(nil)

type FakeMembershipRepo struct {
	lock        sync.RWMutex
	memberships map[string]map[string]workspaces.Membership // workspaceID -> userID -> membership
}

func NewFakeMembershipRepo() *FakeMembershipRepo {
	return &FakeMembershipRepo{memberships: make(map[string]map[string]workspaces.Membership)}
}

// Add seeds a membership for tests.
func (mr *FakeMembershipRepo) Add(m workspaces.Membership) {
	mr.lock.Lock()
	defer mr.lock.Unlock()
	if _, ok := mr.memberships[m.WorkspaceID]; !ok {
		mr.memberships[m.WorkspaceID] = make(map[string]workspaces.Membership)
	}
	mr.memberships[m.WorkspaceID][m.UserID] = m
}

func (mr *FakeMembershipRepo) GetRole(_ context.Context, workspaceID, userID string) (authz.Role, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()
	ws, ok := mr.memberships[workspaceID]
	if !ok {
		return "", workspaces.NotFoundErr
	}
	m, ok := ws[userID]
	if !ok {
		return "", workspaces.NotFoundErr
	}
	return m.Role, nil
}

func (mr *FakeMembershipRepo) ListForUser(_ context.Context, userID string) ([]workspaces.Membership, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()
	var out []workspaces.Membership
	for _, ws := range mr.memberships {
		if m, ok := ws[userID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
