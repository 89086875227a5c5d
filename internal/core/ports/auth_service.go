package ports

import (
	"context"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// AuthResult is what register and login hand back to the caller.
type AuthResult struct {
	Principal domain.Principal
	Tokens    domain.TokenPair
}

// AuthService verifies credentials and manages sessions.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*domain.Principal, error)
}
