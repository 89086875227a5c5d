package service

import (
	"context"
	"time"

	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

// AccessVerifier is the slice of the token service the gate depends on.
type AccessVerifier interface {
	VerifyAccess(token string) (*ports.AccessClaims, error)
}

// Gate authenticates a bearer token and then authorizes the requirement.
// Authentication failures never reach the decision engine.
type Gate struct {
	tokens     AccessVerifier
	authorizer ports.Authorizer
	events     ports.AuthEventPublisher
	now        func() time.Time
}

func NewGate(tokens AccessVerifier, authorizer ports.Authorizer, events ports.AuthEventPublisher) *Gate {
	if events == nil {
		events = NopPublisher{}
	}
	return &Gate{tokens: tokens, authorizer: authorizer, events: events, now: time.Now}
}

func (g *Gate) Check(ctx context.Context, bearerToken string, req domain.Requirement) (*domain.Principal, error) {
	claims, err := g.tokens.VerifyAccess(bearerToken)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken
	}

	principal, err := g.authorizer.Authorize(ctx, claims.UserID, req)
	if err != nil {
		if authz, ok := domain.IsAuthzError(err); ok {
			g.events.Publish(domain.AuthEvent{
				Kind:       domain.EventAccessDenied,
				UserID:     claims.UserID,
				Email:      claims.Email,
				Outcome:    domain.OutcomeFailure,
				Reason:     authz.Code,
				OccurredAt: g.now().UTC(),
			})
		}
		return nil, err
	}
	return principal, nil
}
