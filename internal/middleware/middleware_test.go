package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"orus-risk/internal/logging"
	"orus-risk/internal/models"
	"orus-risk/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func token(t *testing.T, role string, permissions ...string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, models.UserClaims{
		Email:       role + "@orus",
		Role:        role,
		Permissions: permissions,
	}, time.Minute)
	require.NoError(t, err)
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	auth := NewAuthMiddleware(testSecret)
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Get("/score", auth.Handler, HasPermission(models.PermissionRiskScore), ok)
	app.Get("/admin", auth.Handler, AdminAuthMiddleware, HasPermission(models.PermissionBlacklistWrite), ok)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/score", "", fiber.StatusUnauthorized},
		{"not bearer", "/score", "Basic abc", fiber.StatusUnauthorized},
		{"bad token", "/score", "Bearer nope", fiber.StatusUnauthorized},
		{"service can score", "/score", "Bearer " + token(t, models.RoleService), fiber.StatusNoContent},
		{"service cannot administer", "/admin", "Bearer " + token(t, models.RoleService), fiber.StatusForbidden},
		{"no permission", "/score", "Bearer " + token(t, "auditor", models.PermissionAnalyticsRead), fiber.StatusForbidden},
		{"admin", "/admin", "Bearer " + token(t, models.RoleAdmin), fiber.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestForbiddenBody(t *testing.T) {
	app := newApp()

	for _, path := range []string{"/admin", "/score"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "auditor"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Insufficient permissions", body["error"], path)
	}
}

func TestRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")

	app := fiber.New()
	app.Use(RequestID(logger))
	app.Get("/", func(c *fiber.Ctx) error {
		logging.L(c.UserContext()).Info("handled")
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}
