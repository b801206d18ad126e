// Package authz is the authorization gate: a pure mapping from workspace
// role to permitted operations. It does no I/O and holds no state beyond the
// fixed role/permission table, so it can be consulted on every request.
package authz

// Role is a workspace-scoped authorization level. The set is closed; any
// value outside it fails every check.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// Permission names a single operation downstream APIs gate on.
type Permission string

const (
	PermWorkspaceView     Permission = "workspace.view"
	PermWorkspaceSettings Permission = "workspace.settings"
	PermMemberManage      Permission = "member.manage"
	PermEpicCreate        Permission = "epic.create"
	PermTaskCreate        Permission = "task.create"
	PermTaskEdit          Permission = "task.edit"
	PermTaskDelete        Permission = "task.delete"
	PermCommentCreate     Permission = "comment.create"
)

// permissions is the single role x permission table. Every call site goes
// through Authorize; no handler compares role strings directly.
var permissions = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermWorkspaceView:     true,
		PermWorkspaceSettings: true,
		PermMemberManage:      true,
		PermEpicCreate:        true,
		PermTaskCreate:        true,
		PermTaskEdit:          true,
		PermTaskDelete:        true,
		PermCommentCreate:     true,
	},
	RoleManager: {
		PermWorkspaceView: true,
		PermEpicCreate:    true,
		PermTaskCreate:    true,
		PermTaskEdit:      true,
		PermTaskDelete:    true,
		PermCommentCreate: true,
	},
	RoleMember: {
		PermWorkspaceView: true,
		PermTaskCreate:    true,
		PermTaskEdit:      true,
		PermCommentCreate: true,
	},
}

// Requirement is either a fixed role allow-list or a named permission.
type Requirement interface {
	allows(role Role) bool
}

type anyOf []Role

func (req anyOf) allows(role Role) bool {
	for _, r := range req {
		if r == role {
			// Only defined roles can match; the table is the role registry.
			_, defined := permissions[role]
			return defined
		}
	}
	return false
}

// AnyOf builds a requirement satisfied by any of the listed roles.
func AnyOf(roles ...Role) Requirement { return anyOf(roles) }

type can Permission

func (req can) allows(role Role) bool {
	perms, defined := permissions[role]
	if !defined {
		return false
	}
	return perms[Permission(req)]
}

// Can builds a requirement satisfied by any role granted the permission.
func Can(p Permission) Requirement { return can(p) }

// Authorize evaluates a role against a requirement. Absent or undefined
// roles always fail closed.
func Authorize(role Role, requirement Requirement) bool {
	if role == "" || requirement == nil {
		return false
	}
	return requirement.allows(role)
}

// ParseRole validates a stored role value at the boundary.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := permissions[r]
	return r, ok
}
