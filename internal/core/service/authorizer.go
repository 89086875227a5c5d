package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

// Authorizer reads the principal fresh on every call and applies domain.Decide.
type Authorizer struct {
	principals ports.PrincipalStore
	log        zerolog.Logger
}

func NewAuthorizer(principals ports.PrincipalStore, log zerolog.Logger) *Authorizer {
	return &Authorizer{principals: principals, log: log}
}

// Authorize returns the resolved principal when req is satisfied. A denial is
// a *domain.AuthzError wrapping domain.ErrForbidden.
func (a *Authorizer) Authorize(ctx context.Context, userID string, req domain.Requirement) (*domain.Principal, error) {
	principal, err := a.principals.FindPrincipal(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewAuthzError(domain.ReasonPrincipalNotFound)
		}
		return nil, err
	}

	decision := domain.Decide(*principal, req)
	if !decision.Allowed {
		a.log.Debug().
			Str("user_id", userID).
			Str("reason", decision.Reason).
			Strs("required_roles", req.Roles).
			Strs("required_permissions", req.Permissions).
			Msg("access denied")
		return nil, domain.NewAuthzError(decision.Reason)
	}
	return principal, nil
}
