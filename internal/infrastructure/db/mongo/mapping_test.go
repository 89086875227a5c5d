package mongo

import (
	"testing"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

func TestPrincipalDoc_ToDomain_NilSlices(t *testing.T) {
	p := principalDoc{ID: "u1", Email: "a@example.com"}.toDomain()
	if p.Roles == nil || p.Permissions == nil {
		t.Fatalf("expected empty, non-nil slices")
	}
}

func TestRefreshTokenDoc_RoundTrip(t *testing.T) {
	exp := time.Date(2026, 1, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	in := &domain.RefreshToken{ID: "r1", Token: "tok", UserID: "u1", ExpiresAt: exp}

	doc := newRefreshTokenDoc(in)
	if doc.ExpiresAt.Location() != time.UTC {
		t.Fatalf("expires_at must be stored in UTC")
	}
	out := doc.toDomain()
	if !out.ExpiresAt.Equal(exp) || out.Token != "tok" || out.UserID != "u1" {
		t.Fatalf("unexpected token %+v", out)
	}
}

func TestAuthEventDoc_OmitsEmptyFields(t *testing.T) {
	doc := authEventDoc(&domain.AuthEvent{Kind: domain.EventLogin, Outcome: domain.OutcomeFailure, Email: "a@example.com"})
	if _, ok := doc["user_id"]; ok {
		t.Fatalf("user_id should be omitted when unknown")
	}
	if doc["kind"] != "login" || doc["email"] != "a@example.com" {
		t.Fatalf("unexpected doc %v", doc)
	}
}

func TestPrincipalPipeline_MatchesUser(t *testing.T) {
	p := principalPipeline("u1")
	if len(p) != 6 {
		t.Fatalf("expected 6 stages, got %d", len(p))
	}
	if p[0][0].Key != "$match" {
		t.Fatalf("first stage must be $match, got %s", p[0][0].Key)
	}
}

// Rotate, CreateUserWithRole and the principal aggregation need a replica set;
// they are covered by TestIntegration_* in integration_test.go (MONGO_TEST_URI).
