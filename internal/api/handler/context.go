package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/api/middleware"
	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// currentPrincipal returns the principal placed on the context by the gate
// middleware. Its absence means the route was registered without a guard.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return p, nil
}
