package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

func newTestAuthService(t *testing.T, principals *stubPrincipalStore, store *stubRefreshStore, events *recordingPublisher) *AuthService {
	t.Helper()
	tokens := newTestTokenService(t, principals, store, newFakeClock())
	return NewAuthService(principals, tokens, events, "user", zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	principals := newStubPrincipalStore()
	principals.addRole("user", "activity.create", "activity.view")
	store := newStubRefreshStore()
	events := &recordingPublisher{}
	svc := newTestAuthService(t, principals, store, events)

	res, err := svc.Register(context.Background(), "  Alice@Example.com ", "pass123", "Alice")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Principal.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", res.Principal.Email)
	}
	if !res.Principal.HasRole("user") || !res.Principal.HasPermission("activity.create") {
		t.Fatalf("default role not attached: %+v", res.Principal)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}
	if store.count() != 1 {
		t.Fatalf("expected one refresh row, got %d", store.count())
	}

	stored, err := principals.FindUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if !slices.Equal(events.kinds(), []domain.AuthEventKind{domain.EventRegister}) {
		t.Fatalf("unexpected events %v", events.kinds())
	}
}

func TestAuthService_Register_WithoutDefaultRole(t *testing.T) {
	principals := newStubPrincipalStore()
	svc := newTestAuthService(t, principals, newStubRefreshStore(), &recordingPublisher{})

	res, err := svc.Register(context.Background(), "bob@example.com", "pass123", "Bob")
	if err != nil {
		t.Fatalf("missing default role must not fail registration: %v", err)
	}
	if len(res.Principal.Roles) != 0 || len(res.Principal.Permissions) != 0 {
		t.Fatalf("expected empty closure, got %+v", res.Principal)
	}
}

func TestAuthService_Register_FailedLinkLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	principals := newStubPrincipalStore()
	principals.addRole("user", "activity.create")
	principals.linkErr = fmt.Errorf("%w: link user role: connection reset", domain.ErrUnavailable)
	svc := newTestAuthService(t, principals, newStubRefreshStore(), &recordingPublisher{})

	if _, err := svc.Register(ctx, "carol@example.com", "pass123", "Carol"); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := principals.FindUserByEmail(ctx, "carol@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("a failed registration must not leave the user behind, got %v", err)
	}

	principals.linkErr = nil
	res, err := svc.Register(ctx, "carol@example.com", "pass123", "Carol")
	if err != nil {
		t.Fatalf("retrying registration must succeed: %v", err)
	}
	if !res.Principal.HasRole("user") {
		t.Fatalf("expected default role after retry, got %+v", res.Principal)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	principals := newStubPrincipalStore()
	principals.addUser("u1", "alice@example.com")
	store := newStubRefreshStore()
	svc := newTestAuthService(t, principals, store, &recordingPublisher{})

	_, err := svc.Register(context.Background(), "ALICE@example.com", "pass123", "Alice")
	if !errors.Is(err, domain.ErrUserExists) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrUserExists (conflict), got %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("no tokens may be issued on conflict")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestAuthService(t, newStubPrincipalStore(), newStubRefreshStore(), &recordingPublisher{})

	if _, err := svc.Register(context.Background(), "", "pass", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@example.com", "", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	principals := newStubPrincipalStore()
	principals.addRole("user", "activity.view")
	store := newStubRefreshStore()
	events := &recordingPublisher{}
	svc := newTestAuthService(t, principals, store, events)

	if _, err := svc.Register(ctx, "alice@example.com", "pass123", "Alice"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.Login(ctx, "Alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !res.Principal.HasPermission("activity.view") {
		t.Fatalf("principal closure missing: %+v", res.Principal)
	}
	if store.count() != 2 {
		t.Fatalf("each login issues one refresh row, got %d", store.count())
	}

	_, wrongPass := svc.Login(ctx, "alice@example.com", "nope")
	_, unknown := svc.Login(ctx, "ghost@example.com", "pass123")
	for _, err := range []error{wrongPass, unknown} {
		if !errors.Is(err, domain.ErrInvalidCredentials) || !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("failure messages must not distinguish cases: %q vs %q", wrongPass, unknown)
	}
	if store.count() != 2 {
		t.Fatalf("failed logins must not issue tokens")
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	principals := newStubPrincipalStore()
	store := newStubRefreshStore()
	events := &recordingPublisher{}
	svc := newTestAuthService(t, principals, store, events)

	res, err := svc.Register(ctx, "alice@example.com", "pass123", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := svc.Logout(ctx, res.Principal.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, res.Principal.ID); err != nil {
		t.Fatalf("second Logout must be a no-op: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("refresh after logout: expected ErrUnauthorized, got %v", err)
	}

	want := []domain.AuthEventKind{
		domain.EventRegister, domain.EventRefresh, domain.EventLogout, domain.EventLogout, domain.EventRefresh,
	}
	if !slices.Equal(events.kinds(), want) {
		t.Fatalf("events: want %v, got %v", want, events.kinds())
	}
}

func TestAuthService_RefreshEventNamesOwner(t *testing.T) {
	ctx := context.Background()
	events := &recordingPublisher{}
	svc := newTestAuthService(t, newStubPrincipalStore(), newStubRefreshStore(), events)

	res, err := svc.Register(ctx, "alice@example.com", "pass123", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var refresh *domain.AuthEvent
	for _, e := range events.all() {
		if e.Kind == domain.EventRefresh {
			refresh = &e
		}
	}
	if refresh == nil {
		t.Fatalf("no refresh event published")
	}
	if refresh.UserID != res.Principal.ID || refresh.ShardKey() != res.Principal.ID {
		t.Fatalf("refresh event must carry the owner, got %+v", refresh)
	}
	if refresh.Outcome != domain.OutcomeSuccess {
		t.Fatalf("unexpected outcome %q", refresh.Outcome)
	}
}

func TestAuthService_Profile(t *testing.T) {
	principals := newStubPrincipalStore()
	principals.addRole("viewer", "activity.view")
	principals.addUser("u1", "alice@example.com", "viewer")
	svc := newTestAuthService(t, principals, newStubRefreshStore(), &recordingPublisher{})

	p, err := svc.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !p.HasRole("viewer") || !p.HasPermission("activity.view") {
		t.Fatalf("unexpected principal %+v", p)
	}

	if _, err := svc.Profile(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
