package postgres

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// PrincipalStore implements ports.PrincipalStore on PostgreSQL.
type PrincipalStore struct {
	db *sql.DB
}

func NewPrincipalStore(db *sql.DB) *PrincipalStore {
	return &PrincipalStore{db: db}
}

const principalQuery = `
	select u.id, u.email, u.name, r.name, p.name
	from users u
	left join user_roles ur on ur.user_id = u.id
	left join roles r on r.id = ur.role_id
	left join role_permissions rp on rp.role_id = r.id
	left join permissions p on p.id = rp.permission_id
	where u.id = $1
`

// FindPrincipal resolves the user and its role/permission closure in one
// round trip. Each row is one (role, permission) pair; nulls come from users
// or roles without assignments.
func (s *PrincipalStore) FindPrincipal(ctx context.Context, userID string) (*domain.Principal, error) {
	rows, err := s.db.QueryContext(ctx, principalQuery, userID)
	if err != nil {
		return nil, unavailable("query principal", err)
	}
	defer rows.Close()

	var p *domain.Principal
	for rows.Next() {
		var (
			id, email, name string
			role, perm      sql.NullString
		)
		if err := rows.Scan(&id, &email, &name, &role, &perm); err != nil {
			return nil, unavailable("scan principal", err)
		}
		if p == nil {
			p = &domain.Principal{ID: id, Email: email, Name: name, Roles: []string{}, Permissions: []string{}}
		}
		if role.Valid && !slices.Contains(p.Roles, role.String) {
			p.Roles = append(p.Roles, role.String)
		}
		if perm.Valid && !slices.Contains(p.Permissions, perm.String) {
			p.Permissions = append(p.Permissions, perm.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate principal", err)
	}
	if p == nil {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

const userColumns = `id, email, name, password_hash, created_at, updated_at`

func (s *PrincipalStore) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = $1`, userID)
}

func (s *PrincipalStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where email = $1`, email)
}

func (s *PrincipalStore) findUser(ctx context.Context, query, arg string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable("find user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

const insertUserQuery = `
	insert into users (id, email, name, password_hash, created_at, updated_at)
	values ($1, $2, $3, $4, $5, $6)
`

// linkRoleByNameQuery writes nothing when the role does not exist.
const linkRoleByNameQuery = `
	insert into user_roles (user_id, role_id)
	select $1, id from roles where name = $2
`

func insertUser(ctx context.Context, db execer, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = uuid.NewString()
	_, err := db.ExecContext(ctx, insertUserQuery,
		created.ID, created.Email, created.Name, created.PasswordHash, created.CreatedAt.UTC(), created.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, unavailable("insert user", err)
	}
	return &created, nil
}

func (s *PrincipalStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	return insertUser(ctx, s.db, user)
}

func (s *PrincipalStore) CreateUserWithRole(ctx context.Context, user *domain.User, roleName string) (*domain.User, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, unavailable("begin create user", err)
	}
	defer func() { _ = tx.Rollback() }()

	created, err := insertUser(ctx, tx, user)
	if err != nil {
		return nil, false, err
	}

	linked := false
	if roleName != "" {
		res, err := tx.ExecContext(ctx, linkRoleByNameQuery, created.ID, roleName)
		if err != nil {
			return nil, false, unavailable("link user role", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, false, unavailable("link user role", err)
		}
		linked = n > 0
	}

	if err := tx.Commit(); err != nil {
		return nil, false, unavailable("commit create user", err)
	}
	return created, linked, nil
}

func (s *PrincipalStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var r domain.Role
	err := s.db.QueryRowContext(ctx, `select id, name, description from roles where name = $1`, name).
		Scan(&r.ID, &r.Name, &r.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		return nil, unavailable("find role", err)
	}
	return &r, nil
}

func (s *PrincipalStore) CreateUserRoleLink(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `insert into user_roles (user_id, role_id) values ($1, $2)`, userID, roleID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return unavailable("insert user role", err)
	}
	return nil
}
