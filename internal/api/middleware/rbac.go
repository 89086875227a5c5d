package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/core/policy"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

// Require guards a route with the requirement declared for operationID in
// table. The lookup happens once, when the route is registered; an undeclared
// operation panics so the process never starts with an unguarded route.
func Require(gate ports.Gate, table *policy.Table, operationID string) echo.MiddlewareFunc {
	return Guard(gate, table.MustLookup(operationID))
}
