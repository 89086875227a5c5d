package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these so
// callers can branch with errors.Is instead of matching on message text.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable marks infrastructure failures (connectivity, timeouts).
	// The caller may retry these.
	ErrUnavailable = errors.New("store unavailable")
)

var (
	ErrUserExists           = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidRefreshToken  = fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
	ErrInvalidAccessToken   = fmt.Errorf("%w: invalid or expired access token", ErrUnauthorized)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrRoleNotFound         = fmt.Errorf("%w: role not found", ErrNotFound)
	ErrRefreshTokenNotFound = fmt.Errorf("%w: refresh token not found", ErrNotFound)
)

// Reason codes carried by AuthzError.
const (
	ReasonPrincipalNotFound = "PRINCIPAL_NOT_FOUND"
	ReasonMissingRole       = "MISSING_ROLE"
	ReasonMissingPermission = "MISSING_PERMISSION"
)

// AuthzError is a Forbidden decision annotated with the rule that failed.
type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAuthzError builds a Forbidden error for the given reason code.
func NewAuthzError(code string) error {
	return &AuthzError{Code: code, Err: ErrForbidden}
}

// IsAuthzError reports whether err carries an AuthzError and returns it.
func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
