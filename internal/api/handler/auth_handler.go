package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/activitytracker/tracker-api/internal/api/metrics"
	"github.com/activitytracker/tracker-api/internal/core/domain"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and signs it in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Failure      500   {object}  errorBody
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeAttempt("register", err)
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	observeAttempt("register", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

// Login authenticates a user and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeAttempt("login", err)
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	observeAttempt("login", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the caller keeps the response.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokensResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeAttempt("refresh", err)
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	observeAttempt("refresh", err)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues("rotated").Inc()
	return c.JSON(http.StatusOK, toTokensResponse(*pair))
}

// Logout revokes every refresh token of the caller.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  errorBody
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	err = h.authService.Logout(c.Request().Context(), p.ID)
	observeAttempt("logout", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func observeAttempt(operation string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(operation, attemptResult(err)).Inc()
}

func attemptResult(err error) string {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &he), errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
