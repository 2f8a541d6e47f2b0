package auth_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-booknook-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		detail     string
		code       string
		challenged bool
	}{
		{
			name:   "unauthenticated",
			err:    auth.ErrUnauthenticated,
			status: http.StatusUnauthorized, detail: "Could not validate credentials",
			code: auth.TextCodeNotAuthenticated, challenged: true,
		},
		{
			name:   "deactivated",
			err:    auth.ErrDeactivated,
			status: http.StatusForbidden, detail: "User account is deactivated",
			code: auth.TextCodeAccountDisabled,
		},
		{
			name:   "forbidden",
			err:    auth.ErrForbidden,
			status: http.StatusForbidden, detail: "Not enough permissions",
			code: auth.TextCodeInsufficientPriv,
		},
		{
			name:   "not found",
			err:    auth.ErrAccountNotFound,
			status: http.StatusNotFound, detail: "User not found",
			code: auth.TextCodeAccountNotFound,
		},
		{
			name:   "fiber error",
			err:    fiber.NewError(http.StatusUnprocessableEntity, "Invalid request body"),
			status: http.StatusUnprocessableEntity, detail: "Invalid request body",
		},
		{
			name:   "category without code",
			err:    goerrors.New("nope", goerrors.CategoryConflict),
			status: http.StatusConflict, detail: "nope",
		},
		{
			name:   "internal details are hidden",
			err:    goerrors.Wrap(errors.New("pq: connection refused"), goerrors.CategoryInternal, "failed to load account"),
			status: http.StatusInternalServerError, detail: "Internal server error",
		},
		{
			name:   "plain error",
			err:    fmt.Errorf("boom"),
			status: http.StatusInternalServerError, detail: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler(nil)})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			res, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer res.Body.Close()

			assert.Equal(t, tt.status, res.StatusCode)

			var body auth.ErrorResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.Equal(t, tt.detail, body.Detail)
			assert.Equal(t, tt.code, body.Code)

			if tt.challenged {
				assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, res.Header.Get("WWW-Authenticate"))
			}
		})
	}
}

func TestHasTextCode(t *testing.T) {
	wrapped := fmt.Errorf("decode: %w", auth.ErrTokenExpired)

	assert.True(t, auth.HasTextCode(wrapped, auth.TextCodeTokenExpired))
	assert.False(t, auth.HasTextCode(wrapped, auth.TextCodeTokenMalformed))
	assert.False(t, auth.HasTextCode(nil, auth.TextCodeTokenExpired))
	assert.False(t, auth.HasTextCode(errors.New("plain"), auth.TextCodeTokenExpired))
}

func TestTokenErrorHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expired   bool
		malformed bool
	}{
		{name: "nil"},
		{name: "expired sentinel", err: auth.ErrTokenExpired, expired: true},
		{name: "malformed sentinel", err: auth.ErrTokenMalformed, malformed: true},
		{name: "jwt library message", err: errors.New("token has invalid claims: token is expired"), expired: true},
		{name: "middleware message", err: errors.New("missing or malformed JWT"), malformed: true},
		{name: "unrelated", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, auth.IsTokenExpiredError(tt.err))
			assert.Equal(t, tt.malformed, auth.IsMalformedError(tt.err))
		})
	}
}
