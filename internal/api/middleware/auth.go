package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/api/metrics"
	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Guard authenticates the bearer token and authorizes req through the gate.
// On success the principal is available via PrincipalFrom and
// PrincipalFromContext.
func Guard(gate ports.Gate, req domain.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.AuthzDecisionsTotal.WithLabelValues("unauthenticated", "").Inc()
				return err
			}

			start := time.Now()
			principal, err := gate.Check(c.Request().Context(), token, req)
			metrics.AuthzDecisionDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				recordDenial(err)
				return err
			}

			metrics.AuthzDecisionsTotal.WithLabelValues("allow", "").Inc()
			setPrincipal(c, principal)
			return next(c)
		}
	}
}

func recordDenial(err error) {
	if authz, ok := domain.IsAuthzError(err); ok {
		metrics.AuthzDecisionsTotal.WithLabelValues("deny", authz.Code).Inc()
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		metrics.AuthzDecisionsTotal.WithLabelValues("unauthenticated", "").Inc()
		return
	}
	metrics.AuthzDecisionsTotal.WithLabelValues("error", "").Inc()
}
