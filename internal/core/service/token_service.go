package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenConfig carries the signing material. Both secrets are required and must differ.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

func (c TokenConfig) validate() error {
	switch {
	case c.AccessSecret == "":
		return errors.New("token config: access secret is required")
	case c.RefreshSecret == "":
		return errors.New("token config: refresh secret is required")
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("token config: access and refresh secrets must differ")
	case c.AccessTTL < 0 || c.RefreshTTL < 0:
		return errors.New("token config: ttl must not be negative")
	}
	return nil
}

// tokenClaims is the payload shared by access and refresh tokens.
// The jti keeps two tokens minted in the same second distinct.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService mints signed access/refresh pairs and owns the refresh token lifecycle.
type TokenService struct {
	principals ports.PrincipalStore
	store      ports.RefreshTokenStore
	cfg        TokenConfig
	now        func() time.Time
	log        zerolog.Logger
}

func NewTokenService(principals ports.PrincipalStore, store ports.RefreshTokenStore, cfg TokenConfig, log zerolog.Logger) (*TokenService, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		principals: principals,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}, nil
}

// WithClock replaces the time source. Used by tests to pin expiry boundaries.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a new pair for user and persists exactly one refresh token row.
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, row, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a stored, unexpired, correctly signed refresh token for a
// new pair. The consumed row is deleted in the same step the new one is
// written, so a value can be exchanged at most once.
func (s *TokenService) Refresh(ctx context.Context, value string) (*domain.TokenPair, error) {
	if value == "" {
		return nil, domain.ErrInvalidRefreshToken
	}

	stored, err := s.store.FindByToken(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := s.now()
	if stored.ExpiredAt(now) {
		return nil, domain.ErrInvalidRefreshToken
	}

	// Store expiry is authoritative; only the signature is checked here.
	claims, err := s.parse(value, s.cfg.RefreshSecret, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	if claims.Subject != stored.UserID {
		s.log.Warn().Str("token_id", stored.ID).Msg("refresh token subject does not match stored owner")
		return nil, domain.ErrInvalidRefreshToken
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		s.log.Warn().
			Str("token_id", stored.ID).
			Time("claim_exp", claims.ExpiresAt.Time).
			Time("stored_exp", stored.ExpiresAt).
			Msg("refresh token claim expiry disagrees with stored expiry")
	}

	user, err := s.principals.FindUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("load token owner: %w", err)
	}

	pair, next, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rotate(ctx, stored.ID, next); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return pair, nil
}

// RevokeAll deletes every refresh token owned by userID. Zero rows is not an error.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

// VerifyAccess checks signature and expiry of an access token.
func (s *TokenService) VerifyAccess(token string) (*ports.AccessClaims, error) {
	if token == "" {
		return nil, domain.ErrInvalidAccessToken
	}
	claims, err := s.parse(token, s.cfg.AccessSecret, jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return nil, domain.ErrInvalidAccessToken
	}
	return &ports.AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *TokenService) mint(user *domain.User) (*domain.TokenPair, *domain.RefreshToken, error) {
	now := s.now()

	accessExp := now.Add(s.cfg.AccessTTL)
	access, err := s.sign(user, s.cfg.AccessSecret, now, accessExp)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshExp := now.Add(s.cfg.RefreshTTL)
	refresh, err := s.sign(user, s.cfg.RefreshSecret, now, refreshExp)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	row := &domain.RefreshToken{
		ID:        uuid.NewString(),
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: refreshExp.UTC(),
		CreatedAt: now.UTC(),
	}
	pair := &domain.TokenPair{
		UserID:           user.ID,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp.UTC(),
		RefreshExpiresAt: refreshExp.UTC(),
	}
	return pair, row, nil
}

func (s *TokenService) sign(user *domain.User, secret string, issuedAt, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func (s *TokenService) parse(token, secret string, opts ...jwt.ParserOption) (*tokenClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
