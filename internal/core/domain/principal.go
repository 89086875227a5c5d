package domain

import "slices"

// Principal is an authenticated identity together with its role names and
// effective permission set, resolved from the principal store at decision time.
type Principal struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// HasPermission reports whether the named permission is in the effective set.
func (p Principal) HasPermission(permission string) bool {
	return slices.Contains(p.Permissions, permission)
}

// HasAnyRole reports whether at least one of roles is held.
func (p Principal) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, p.HasRole)
}

// HasAnyPermission reports whether at least one of permissions is held.
func (p Principal) HasAnyPermission(permissions ...string) bool {
	return slices.ContainsFunc(permissions, p.HasPermission)
}

// Requirement is the access policy declared on a single operation.
// A nil or empty list means the corresponding condition is absent.
type Requirement struct {
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Unrestricted reports whether the requirement only asks for an authenticated caller.
func (r Requirement) Unrestricted() bool {
	return len(r.Roles) == 0 && len(r.Permissions) == 0
}

// Decision is the outcome of an RBAC evaluation.
type Decision struct {
	Allowed bool
	// Reason is one of the Reason* codes when Allowed is false.
	Reason string
}

// Allow and Deny construct decisions.
func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Decide evaluates req against p. Within a category any single match passes;
// when both categories are declared each must pass on its own.
func Decide(p Principal, req Requirement) Decision {
	if len(req.Roles) > 0 && !p.HasAnyRole(req.Roles...) {
		return Deny(ReasonMissingRole)
	}
	if len(req.Permissions) > 0 && !p.HasAnyPermission(req.Permissions...) {
		return Deny(ReasonMissingPermission)
	}
	return Allow()
}
