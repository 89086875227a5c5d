// Package policy holds the static operation → requirement table consulted by
// the authorization gate. The table is built once at startup and never mutated.
package policy

import (
	"fmt"
	"sort"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// Operation identifiers. The resource prefix matches the permission namespace.
const (
	ActivityCreate = "activity.create"
	ActivityList   = "activity.list"
	ActivityGet    = "activity.get"
	ActivityUpdate = "activity.update"
	ActivityDelete = "activity.delete"

	ProgressCreate = "progress.create"
	ProgressList   = "progress.list"
	ProgressGet    = "progress.get"
	ProgressUpdate = "progress.update"
	ProgressDelete = "progress.delete"

	CategoryCreate = "category.create"
	CategoryList   = "category.list"
	CategoryGet    = "category.get"
	CategoryUpdate = "category.update"
	CategoryDelete = "category.delete"

	TagCreate = "tag.create"
	TagList   = "tag.list"
	TagGet    = "tag.get"
	TagUpdate = "tag.update"
	TagDelete = "tag.delete"

	RoleCreate = "role.create"
	RoleList   = "role.list"
	RoleGet    = "role.get"
	RoleUpdate = "role.update"
	RoleDelete = "role.delete"

	PermissionCreate = "permission.create"
	PermissionList   = "permission.list"
	PermissionGet    = "permission.get"
	PermissionUpdate = "permission.update"
	PermissionDelete = "permission.delete"

	UserProfile = "user.profile"
	UserLogout  = "user.logout"
	UserList    = "user.list"
	UserGet     = "user.get"
	UserUpdate  = "user.update"
	UserDelete  = "user.delete"
)

// Permission names as seeded in the principal store.
const (
	PermActivityCreate   = "activity.create"
	PermActivityView     = "activity.view"
	PermActivityUpdate   = "activity.update"
	PermActivityDelete   = "activity.delete"
	PermProgressCreate   = "progress.create"
	PermProgressUpdate   = "progress.update"
	PermProgressDelete   = "progress.delete"
	PermCategoryManage   = "category.manage"
	PermTagManage        = "tag.manage"
	PermUserManage       = "user.manage"
	PermRoleManage       = "role.manage"
	PermPermissionManage = "permission.manage"
)

// Table maps operation ids to their declared requirement.
type Table struct {
	entries map[string]domain.Requirement
}

// New builds a table from entries. Requirement slices are copied.
func New(entries map[string]domain.Requirement) *Table {
	t := &Table{entries: make(map[string]domain.Requirement, len(entries))}
	for op, req := range entries {
		t.entries[op] = domain.Requirement{
			Roles:       append([]string(nil), req.Roles...),
			Permissions: append([]string(nil), req.Permissions...),
		}
	}
	return t
}

// Lookup returns the requirement declared for operationID.
func (t *Table) Lookup(operationID string) (domain.Requirement, bool) {
	req, ok := t.entries[operationID]
	return req, ok
}

// MustLookup panics on an undeclared operation. Route registration calls it so
// a typo fails at startup instead of serving an unguarded route.
func (t *Table) MustLookup(operationID string) domain.Requirement {
	req, ok := t.Lookup(operationID)
	if !ok {
		panic(fmt.Sprintf("policy: no requirement declared for operation %q", operationID))
	}
	return req
}

// Operations lists the declared operation ids in sorted order.
func (t *Table) Operations() []string {
	ops := make([]string, 0, len(t.entries))
	for op := range t.entries {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func perms(p ...string) domain.Requirement { return domain.Requirement{Permissions: p} }

var authenticated = domain.Requirement{}

// Default returns the requirement table for every operation the service exposes
// or fronts.
func Default() *Table {
	return New(map[string]domain.Requirement{
		ActivityCreate: perms(PermActivityCreate),
		ActivityList:   perms(PermActivityView),
		ActivityGet:    perms(PermActivityView),
		ActivityUpdate: perms(PermActivityUpdate),
		ActivityDelete: perms(PermActivityDelete),

		// Progress has no view permission of its own; reading it follows activities.
		ProgressCreate: perms(PermProgressCreate),
		ProgressList:   perms(PermActivityView),
		ProgressGet:    perms(PermActivityView),
		ProgressUpdate: perms(PermProgressUpdate),
		ProgressDelete: perms(PermProgressDelete),

		CategoryCreate: perms(PermCategoryManage),
		CategoryList:   authenticated,
		CategoryGet:    authenticated,
		CategoryUpdate: perms(PermCategoryManage),
		CategoryDelete: perms(PermCategoryManage),

		TagCreate: perms(PermTagManage),
		TagList:   authenticated,
		TagGet:    authenticated,
		TagUpdate: perms(PermTagManage),
		TagDelete: perms(PermTagManage),

		RoleCreate: perms(PermRoleManage),
		RoleList:   perms(PermRoleManage),
		RoleGet:    perms(PermRoleManage),
		RoleUpdate: perms(PermRoleManage),
		RoleDelete: perms(PermRoleManage),

		PermissionCreate: perms(PermPermissionManage),
		PermissionList:   perms(PermPermissionManage),
		PermissionGet:    perms(PermPermissionManage),
		PermissionUpdate: perms(PermPermissionManage),
		PermissionDelete: perms(PermPermissionManage),

		UserProfile: authenticated,
		UserLogout:  authenticated,
		UserList:    perms(PermUserManage),
		UserGet:     perms(PermUserManage),
		UserUpdate:  perms(PermUserManage),
		UserDelete:  perms(PermUserManage),
	})
}
