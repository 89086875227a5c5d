package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

const pgErrUniqueViolation = "23505"

// Open returns a pooled handle on the pgx database/sql driver and verifies it
// with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// Schema is the DDL the stores expect. EnsureSchema applies it idempotently.
const Schema = `
create table if not exists users (
	id            text primary key,
	email         text not null unique,
	name          text not null default '',
	password_hash text not null,
	created_at    timestamptz not null,
	updated_at    timestamptz not null
);
create table if not exists roles (
	id          text primary key,
	name        text not null unique,
	description text not null default ''
);
create table if not exists permissions (
	id          text primary key,
	name        text not null unique,
	description text not null default ''
);
create table if not exists user_roles (
	user_id text not null references users(id) on delete cascade,
	role_id text not null references roles(id) on delete cascade,
	primary key (user_id, role_id)
);
create table if not exists role_permissions (
	role_id       text not null references roles(id) on delete cascade,
	permission_id text not null references permissions(id) on delete cascade,
	primary key (role_id, permission_id)
);
create table if not exists refresh_tokens (
	id         text primary key,
	token      text not null unique,
	user_id    text not null references users(id) on delete cascade,
	expires_at timestamptz not null,
	created_at timestamptz not null
);
create index if not exists refresh_tokens_user_id_idx on refresh_tokens(user_id);
create index if not exists refresh_tokens_expires_at_idx on refresh_tokens(expires_at);
create table if not exists auth_events (
	id          bigserial primary key,
	kind        text not null,
	user_id     text,
	email       text,
	outcome     text not null,
	reason      text,
	occurred_at timestamptz not null,
	recorded_at timestamptz not null default now()
);
create index if not exists auth_events_user_id_idx on auth_events(user_id, occurred_at);
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return unavailable("apply schema", err)
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
}
