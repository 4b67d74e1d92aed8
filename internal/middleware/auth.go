// Package middleware provides HTTP middleware components for the application.
// It includes authentication, authorization, and request tracing middleware
// that can be used with the fiber web framework.
package middleware

import (
	"strings"

	"orus-risk/internal/logging"
	"orus-risk/internal/models"
	"orus-risk/internal/utils"
	"orus-risk/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware handles JWT token validation.
// It extracts the JWT token from the Authorization header, validates it,
// and adds the caller's claims to the request context.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Handler validates JWT tokens and adds claims to the request context.
// It checks for:
// - Presence of Authorization header with Bearer token
// - Valid HMAC signature and issuer
// - Token expiration
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	log := logging.L(c.UserContext())

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		log.Warn("token validation failed", "error", err, "path", c.Path())
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}

	c.Locals("claims", claims)
	return c.Next()
}

// ClaimsFromContext returns the claims stored by AuthMiddleware.
func ClaimsFromContext(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	return claims, ok && claims != nil
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, "Invalid claims")
	}

	if claims.Role != models.RoleAdmin {
		logging.L(c.UserContext()).Warn("admin access denied",
			"principal", claims.Principal(), "role", claims.Role, "path", c.Path())
		return response.Forbidden(c)
	}

	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return response.Unauthorized(c)
		}

		// Admins hold every permission
		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}

		logging.L(c.UserContext()).Warn("permission denied",
			"principal", claims.Principal(), "permission", permission)
		return response.Forbidden(c)
	}
}
