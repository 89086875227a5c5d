package ports

import (
	"context"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// TokenService mints, verifies and rotates token pairs.
type TokenService interface {
	Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
	VerifyAccess(token string) (*AccessClaims, error)
}
