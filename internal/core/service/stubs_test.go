package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Principal store
// ---------------------------------------------------------------------------

type stubPrincipalStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*domain.User // by id
	roles     map[string]*domain.Role // by name
	rolePerms map[string][]string     // role name -> permission names
	userRoles map[string][]string     // user id -> role names

	findPrincipalCalls int
	findErr            error
	linkErr            error
}

func newStubPrincipalStore() *stubPrincipalStore {
	return &stubPrincipalStore{
		users:     make(map[string]*domain.User),
		roles:     make(map[string]*domain.Role),
		rolePerms: make(map[string][]string),
		userRoles: make(map[string][]string),
	}
}

func (s *stubPrincipalStore) addRole(name string, perms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[name] = &domain.Role{ID: "role-" + name, Name: name}
	s.rolePerms[name] = perms
}

func (s *stubPrincipalStore) addUser(id, email string, roles ...string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: id, Email: email, Name: id}
	s.users[id] = u
	s.userRoles[id] = roles
	clone := *u
	return &clone
}

func (s *stubPrincipalStore) setRoles(userID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = roles
}

func (s *stubPrincipalStore) deleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.userRoles, id)
}

func (s *stubPrincipalStore) FindPrincipal(_ context.Context, userID string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findPrincipalCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	p := &domain.Principal{ID: u.ID, Email: u.Email, Name: u.Name, Roles: []string{}, Permissions: []string{}}
	for _, role := range s.userRoles[userID] {
		p.Roles = append(p.Roles, role)
		for _, perm := range s.rolePerms[role] {
			if !slices.Contains(p.Permissions, perm) {
				p.Permissions = append(p.Permissions, perm)
			}
		}
	}
	return p, nil
}

func (s *stubPrincipalStore) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *stubPrincipalStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubPrincipalStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	s.seq++
	clone := *user
	clone.ID = fmt.Sprintf("user-%d", s.seq)
	s.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *stubPrincipalStore) CreateUserWithRole(_ context.Context, user *domain.User, roleName string) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, false, domain.ErrUserExists
		}
	}
	_, hasRole := s.roles[roleName]
	if hasRole && s.linkErr != nil {
		return nil, false, s.linkErr
	}
	s.seq++
	clone := *user
	clone.ID = fmt.Sprintf("user-%d", s.seq)
	s.users[clone.ID] = &clone
	if hasRole {
		s.userRoles[clone.ID] = append(s.userRoles[clone.ID], roleName)
	}
	out := clone
	return &out, hasRole, nil
}

func (s *stubPrincipalStore) FindRoleByName(_ context.Context, name string) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *stubPrincipalStore) CreateUserRoleLink(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, r := range s.roles {
		if r.ID == roleID {
			s.userRoles[userID] = append(s.userRoles[userID], name)
			return nil
		}
	}
	return domain.ErrRoleNotFound
}

// ---------------------------------------------------------------------------
// Refresh token store
// ---------------------------------------------------------------------------

type stubRefreshStore struct {
	mu   sync.Mutex
	rows map[string]*domain.RefreshToken // by id
}

func newStubRefreshStore() *stubRefreshStore {
	return &stubRefreshStore{rows: make(map[string]*domain.RefreshToken)}
}

func (s *stubRefreshStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *stubRefreshStore) Insert(_ context.Context, t *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Token == t.Token {
			return domain.ErrConflict
		}
	}
	clone := *t
	s.rows[t.ID] = &clone
	return nil
}

func (s *stubRefreshStore) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Token == token {
			clone := *row
			return &clone, nil
		}
	}
	return nil, domain.ErrRefreshTokenNotFound
}

func (s *stubRefreshStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return domain.ErrRefreshTokenNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *stubRefreshStore) Rotate(_ context.Context, consumedID string, next *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[consumedID]; !ok {
		return domain.ErrRefreshTokenNotFound
	}
	delete(s.rows, consumedID)
	clone := *next
	s.rows[next.ID] = &clone
	return nil
}

func (s *stubRefreshStore) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.UserID == userID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *stubRefreshStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.ExpiredAt(now) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Event publisher
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *recordingPublisher) Publish(e domain.AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []domain.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

func (p *recordingPublisher) kinds() []domain.AuthEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
