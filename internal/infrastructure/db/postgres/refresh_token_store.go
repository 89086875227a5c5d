package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// RefreshTokenStore implements ports.RefreshTokenStore on PostgreSQL.
type RefreshTokenStore struct {
	db *sql.DB
}

func NewRefreshTokenStore(db *sql.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

const insertRefreshToken = `
	insert into refresh_tokens (id, token, user_id, expires_at, created_at)
	values ($1, $2, $3, $4, $5)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertToken(ctx context.Context, db execer, t *domain.RefreshToken) error {
	_, err := db.ExecContext(ctx, insertRefreshToken, t.ID, t.Token, t.UserID, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return unavailable("insert refresh token", err)
	}
	return nil
}

func (s *RefreshTokenStore) Insert(ctx context.Context, t *domain.RefreshToken) error {
	return insertToken(ctx, s.db, t)
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select id, token, user_id, expires_at, created_at
		from refresh_tokens
		where token = $1
	`, token).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, unavailable("find refresh token", err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (s *RefreshTokenStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where id = $1`, id)
	if err != nil {
		return unavailable("delete refresh token", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

// Rotate deletes the consumed row and inserts its successor in one
// transaction. A concurrent rotation of the same row blocks on the delete and
// then sees zero affected rows.
func (s *RefreshTokenStore) Rotate(ctx context.Context, consumedID string, next *domain.RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin rotate", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `delete from refresh_tokens where id = $1`, consumedID)
	if err != nil {
		return unavailable("delete consumed refresh token", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	if err := insertToken(ctx, tx, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit rotate", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where user_id = $1`, userID)
	if err != nil {
		return 0, unavailable("delete user refresh tokens", err)
	}
	return res.RowsAffected()
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, unavailable("delete expired refresh tokens", err)
	}
	return res.RowsAffected()
}
