package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	// Risk engine permissions
	PermissionRiskScore      = "risk:score"
	PermissionBlacklistWrite = "blacklist:write"
	PermissionAnalyticsRead  = "analytics:read"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleService = "service"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID      uint     `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Principal returns a stable identifier for audit fields.
func (c *UserClaims) Principal() string {
	if c.Email != "" {
		return c.Email
	}
	if c.Subject != "" {
		return c.Subject
	}
	return "unknown"
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionRiskScore,
			PermissionBlacklistWrite,
			PermissionAnalyticsRead,
		}
	case RoleService:
		return []string{
			PermissionRiskScore,
		}
	default:
		return []string{}
	}
}
