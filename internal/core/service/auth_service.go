package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

// AuthService implements registration, login, refresh, logout and profile lookup.
type AuthService struct {
	principals  ports.PrincipalStore
	tokens      ports.TokenService
	events      ports.AuthEventPublisher
	defaultRole string
	now         func() time.Time
	log         zerolog.Logger
}

func NewAuthService(
	principals ports.PrincipalStore,
	tokens ports.TokenService,
	events ports.AuthEventPublisher,
	defaultRole string,
	log zerolog.Logger,
) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	if defaultRole == "" {
		defaultRole = domain.DefaultRoleName
	}
	return &AuthService{
		principals:  principals,
		tokens:      tokens,
		events:      events,
		defaultRole: defaultRole,
		now:         time.Now,
		log:         log,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	if _, err := s.principals.FindUserByEmail(ctx, email); err == nil {
		s.publish(domain.EventRegister, "", email, domain.OutcomeFailure, "email_taken")
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user, linked, err := s.principals.CreateUserWithRole(ctx, &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, s.defaultRole)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.publish(domain.EventRegister, "", email, domain.OutcomeFailure, "email_taken")
		}
		return nil, err
	}
	if !linked {
		s.log.Debug().Str("role", s.defaultRole).Msg("default role not configured, skipping assignment")
	}

	principal, err := s.principals.FindPrincipal(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventRegister, user.ID, email, domain.OutcomeSuccess, "")
	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	return &ports.AuthResult{Principal: *principal, Tokens: *tokens}, nil
}

// Login verifies credentials. Unknown email and wrong password both yield
// domain.ErrInvalidCredentials, and both pay for one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.principals.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			s.publish(domain.EventLogin, "", email, domain.OutcomeFailure, "invalid_credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.publish(domain.EventLogin, user.ID, email, domain.OutcomeFailure, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	principal, err := s.principals.FindPrincipal(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventLogin, user.ID, email, domain.OutcomeSuccess, "")
	return &ports.AuthResult{Principal: *principal, Tokens: *tokens}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.publish(domain.EventRefresh, "", "", domain.OutcomeFailure, "invalid_refresh_token")
		}
		return nil, err
	}
	s.publish(domain.EventRefresh, pair.UserID, "", domain.OutcomeSuccess, "")
	return pair, nil
}

// Logout revokes every refresh token of the user. Calling it again is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	n, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}
	s.publish(domain.EventLogout, userID, "", domain.OutcomeSuccess, "")
	s.log.Debug().Str("user_id", userID).Int64("revoked", n).Msg("user logged out")
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.Principal, error) {
	return s.principals.FindPrincipal(ctx, userID)
}

func (s *AuthService) publish(kind domain.AuthEventKind, userID, email, outcome, reason string) {
	s.events.Publish(domain.AuthEvent{
		Kind:       kind,
		UserID:     userID,
		Email:      email,
		Outcome:    outcome,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

// dummyHash is compared against when the email is unknown so both login
// failure paths cost the same.
func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummy
}

// NopPublisher discards audit events.
type NopPublisher struct{}

func (NopPublisher) Publish(domain.AuthEvent) {}
