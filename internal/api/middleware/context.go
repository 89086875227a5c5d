package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

const principalKey = "principal"

type principalCtxKey struct{}

// ContextWithPrincipal returns a copy of ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal stored by the gate middleware.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*domain.Principal)
	return p, ok && p != nil
}

// PrincipalFrom reads the principal from the echo context.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

func setPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
	c.SetRequest(c.Request().WithContext(ContextWithPrincipal(c.Request().Context(), p)))
}
