package domain

import "time"

// DefaultRoleName is the role attached to freshly registered users when it exists.
const DefaultRoleName = "user"

// User models an account that can authenticate against the tracker.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role groups permissions. Names are unique.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission names follow the dotted resource.action convention, e.g. activity.create.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RefreshToken is the persisted record of an issued refresh token.
// ExpiresAt is authoritative: the row is usable only while now < ExpiresAt.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the row is no longer usable at now.
// A row whose ExpiresAt equals now is expired.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair is the access/refresh token couple handed to clients.
// UserID is the subject both tokens were minted for.
type TokenPair struct {
	UserID           string    `json:"-"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
