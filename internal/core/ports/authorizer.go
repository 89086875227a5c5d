package ports

import (
	"context"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// Authorizer resolves a principal and decides a requirement against it.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, req domain.Requirement) (*domain.Principal, error)
}

// Gate authenticates a raw bearer token and authorizes it against a requirement.
type Gate interface {
	Check(ctx context.Context, bearerToken string, req domain.Requirement) (*domain.Principal, error)
}
