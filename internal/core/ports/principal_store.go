package ports

import (
	"context"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// PrincipalStore reads identities and their role/permission closure.
// Implementations must not cache across calls: role and permission changes
// take effect on the next read.
type PrincipalStore interface {
	// FindPrincipal resolves a user together with its role names and effective
	// permission set in a single lookup. Returns domain.ErrUserNotFound when absent.
	FindPrincipal(ctx context.Context, userID string) (*domain.Principal, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// CreateUser returns domain.ErrUserExists when the email is taken.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	// CreateUserWithRole inserts user and links the role named roleName in one
	// atomic step. A missing role is not an error: linked reports whether the
	// link was written. On failure nothing is persisted.
	CreateUserWithRole(ctx context.Context, user *domain.User, roleName string) (created *domain.User, linked bool, err error)
	// FindRoleByName returns domain.ErrRoleNotFound when no role has that name.
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
	CreateUserRoleLink(ctx context.Context, userID, roleID string) error
}
