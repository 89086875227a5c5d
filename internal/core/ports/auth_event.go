package ports

import (
	"context"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// AuthEventRepository appends audit records.
type AuthEventRepository interface {
	InsertAuthEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuthEventPublisher hands audit records off without blocking the caller's
// outcome on their persistence.
type AuthEventPublisher interface {
	Publish(event domain.AuthEvent)
}
