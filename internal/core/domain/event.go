package domain

import "time"

// AuthEventKind identifies what happened in an AuthEvent.
type AuthEventKind string

const (
	EventRegister     AuthEventKind = "register"
	EventLogin        AuthEventKind = "login"
	EventRefresh      AuthEventKind = "refresh"
	EventLogout       AuthEventKind = "logout"
	EventAccessDenied AuthEventKind = "access_denied"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is an append-only audit record of an authentication or
// authorization outcome.
type AuthEvent struct {
	Kind       AuthEventKind
	UserID     string // empty when the caller could not be identified
	Email      string
	Outcome    string
	Reason     string
	OccurredAt time.Time
}

// ShardKey returns the key used to keep one user's events ordered.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}
