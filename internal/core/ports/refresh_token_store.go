package ports

import (
	"context"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// RefreshTokenStore persists issued refresh tokens keyed by their value.
type RefreshTokenStore interface {
	Insert(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns domain.ErrRefreshTokenNotFound when the value is unknown.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// DeleteByID returns domain.ErrRefreshTokenNotFound when nothing was deleted.
	DeleteByID(ctx context.Context, id string) error
	// Rotate deletes consumedID and inserts next as one atomic step. It returns
	// domain.ErrRefreshTokenNotFound, and inserts nothing, when consumedID is
	// already gone.
	Rotate(ctx context.Context, consumedID string, next *domain.RefreshToken) error
	// DeleteAllByUser removes every token owned by userID and reports how many went.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes rows whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
