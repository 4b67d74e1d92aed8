package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler reports on each named dependency. A nil check is listed
// as disabled.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, ping := range h.checks {
		switch {
		case ping == nil:
			services[name] = "disabled"
		case ping(ctx) != nil:
			services[name] = "unavailable"
			status = "degraded"
		default:
			services[name] = "connected"
		}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	})
}
