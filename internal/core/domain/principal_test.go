package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	userOnly := Principal{ID: "u1", Roles: []string{"user"}, Permissions: []string{"activity.create"}}
	admin := Principal{ID: "u2", Roles: []string{"admin"}, Permissions: []string{"activity.view", "user.manage"}}
	noRoleWithPerm := Principal{ID: "u3", Roles: []string{"viewer"}, Permissions: []string{"activity.view"}}

	combined := Requirement{Roles: []string{"admin", "user"}, Permissions: []string{"activity.view"}}

	cases := []struct {
		name       string
		principal  Principal
		req        Requirement
		wantAllow  bool
		wantReason string
	}{
		{"unrestricted", Principal{ID: "x"}, Requirement{}, true, ""},
		{"role without permission", userOnly, combined, false, ReasonMissingPermission},
		{"admin holds both", admin, combined, true, ""},
		{"permission without role", noRoleWithPerm, combined, false, ReasonMissingRole},
		{"any role suffices", userOnly, Requirement{Roles: []string{"admin", "user"}}, true, ""},
		{"any permission suffices", admin, Requirement{Permissions: []string{"tag.manage", "user.manage"}}, true, ""},
		{"no roles at all", Principal{ID: "x"}, Requirement{Permissions: []string{"user.manage"}}, false, ReasonMissingPermission},
		{"empty lists are absent", Principal{ID: "x"}, Requirement{Roles: []string{}, Permissions: []string{}}, true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.principal, tc.req)
			if got.Allowed != tc.wantAllow {
				t.Fatalf("allowed: want %v, got %v", tc.wantAllow, got.Allowed)
			}
			if got.Reason != tc.wantReason {
				t.Fatalf("reason: want %q, got %q", tc.wantReason, got.Reason)
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	p := Principal{ID: "u1", Roles: []string{"user"}, Permissions: []string{"activity.view"}}
	req := Requirement{Roles: []string{"admin"}}
	first := Decide(p, req)
	for i := 0; i < 10; i++ {
		if got := Decide(p, req); got != first {
			t.Fatalf("decision changed on call %d: %+v vs %+v", i, got, first)
		}
	}
}

func TestRefreshToken_ExpiredAt(t *testing.T) {
	tok := &RefreshToken{ExpiresAt: mustTime(t, "2026-01-01T10:00:00Z")}

	if tok.ExpiredAt(mustTime(t, "2026-01-01T09:59:59Z")) {
		t.Fatalf("token should be valid one second before expiry")
	}
	if !tok.ExpiredAt(mustTime(t, "2026-01-01T10:00:00Z")) {
		t.Fatalf("token must be expired when expiresAt equals now")
	}
	if !tok.ExpiredAt(mustTime(t, "2026-01-01T10:00:01Z")) {
		t.Fatalf("token must be expired after expiresAt")
	}
}

func TestAuthzError_Unwrap(t *testing.T) {
	err := NewAuthzError(ReasonMissingRole)
	authz, ok := IsAuthzError(err)
	if !ok {
		t.Fatalf("expected AuthzError, got %v", err)
	}
	if authz.Code != ReasonMissingRole {
		t.Fatalf("unexpected code %s", authz.Code)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden to be unwrapped")
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}
