package handler

import (
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name"     validate:"required,max=120"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// principalResponse is the public view of an authenticated identity.
type principalResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type tokensResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type authResponse struct {
	User   principalResponse `json:"user"`
	Tokens tokensResponse    `json:"tokens"`
}

func toPrincipalResponse(p domain.Principal) principalResponse {
	roles, perms := p.Roles, p.Permissions
	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []string{}
	}
	return principalResponse{ID: p.ID, Email: p.Email, Name: p.Name, Roles: roles, Permissions: perms}
}

func toTokensResponse(t domain.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{User: toPrincipalResponse(r.Principal), Tokens: toTokensResponse(r.Tokens)}
}
