package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the caller's identity with its roles and effective permissions.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  errorBody
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPrincipalResponse(*p))
}

// Get returns any user's identity. Requires user.manage.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	p, err := h.authService.Profile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPrincipalResponse(*p))
}

// errorBody documents the error envelope for swagger.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
