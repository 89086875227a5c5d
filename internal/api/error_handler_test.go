package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantCode   int
		wantError  string
		wantReason string
	}{
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "email is required"), http.StatusBadRequest, "email is required", ""},
		{"user exists", domain.ErrUserExists, http.StatusConflict, "user already exists", ""},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials", ""},
		{"invalid refresh", domain.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid or expired refresh token", ""},
		{"invalid access", domain.ErrInvalidAccessToken, http.StatusUnauthorized, "invalid or expired access token", ""},
		{"missing role", domain.NewAuthzError(domain.ReasonMissingRole), http.StatusForbidden, "access forbidden", domain.ReasonMissingRole},
		{"wrapped denial", fmt.Errorf("gate: %w", domain.NewAuthzError(domain.ReasonPrincipalNotFound)), http.StatusForbidden, "access forbidden", domain.ReasonPrincipalNotFound},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user not found", ""},
		{"role not found", domain.ErrRoleNotFound, http.StatusNotFound, "not found", ""},
		{"unavailable", fmt.Errorf("%w: find principal: timeout", domain.ErrUnavailable), http.StatusServiceUnavailable, "service temporarily unavailable", ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error", ""},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler(tc.err, c)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.wantError || body.Reason != tc.wantReason {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestHTTPErrorHandler_DoesNotLeakInternals(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("pq: password authentication failed for user admin"), c)

	if got := rec.Body.String(); got == "" || !json.Valid([]byte(got)) {
		t.Fatalf("expected json body, got %q", got)
	}
	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Fatalf("internal error text leaked: %q", body.Error)
	}
}
