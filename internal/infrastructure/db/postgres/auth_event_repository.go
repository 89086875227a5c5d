package postgres

import (
	"context"
	"database/sql"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// AuthEventRepository appends audit records to the auth_events table.
type AuthEventRepository struct {
	db *sql.DB
}

func NewAuthEventRepository(db *sql.DB) *AuthEventRepository {
	return &AuthEventRepository{db: db}
}

const insertAuthEvent = `
	insert into auth_events (kind, user_id, email, outcome, reason, occurred_at)
	values ($1, $2, $3, $4, $5, $6)
`

func (r *AuthEventRepository) InsertAuthEvent(ctx context.Context, event *domain.AuthEvent) error {
	_, err := r.db.ExecContext(ctx, insertAuthEvent,
		string(event.Kind),
		nullString(event.UserID),
		nullString(event.Email),
		event.Outcome,
		nullString(event.Reason),
		event.OccurredAt.UTC(),
	)
	if err != nil {
		return unavailable("insert auth event", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
