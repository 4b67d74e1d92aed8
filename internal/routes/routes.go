// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"log/slog"
	"time"

	"orus-risk/internal/handlers"
	"orus-risk/internal/middleware"
	"orus-risk/internal/models"
	"orus-risk/internal/services/risk"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer exposes.
type Dependencies struct {
	RiskService risk.Service
	Blacklist   handlers.BlacklistStore
	FraudChecks handlers.FraudCheckReader
	Health      *handlers.HealthHandler
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	JWTSecret   string
	// ScoreRateLimit caps score requests per principal per minute; 0 disables it.
	ScoreRateLimit int
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Use(middleware.RequestID(deps.Logger))

	if deps.Health != nil {
		app.Get("/health", deps.Health.HealthCheck)
	}
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret)
	api := app.Group("/api", authMiddleware.Handler)

	riskHandler := handlers.NewRiskHandler(deps.RiskService)
	scoring := api.Group("/risk", middleware.HasPermission(models.PermissionRiskScore))
	if deps.ScoreRateLimit > 0 {
		scoring.Use(scoreLimiter(deps.ScoreRateLimit))
	}
	scoring.Post("/score", riskHandler.ScoreTransaction)

	setupAdminRoutes(api, deps)
}

func setupAdminRoutes(api fiber.Router, deps Dependencies) {
	admin := api.Group("/admin", middleware.AdminAuthMiddleware)

	if deps.Blacklist != nil {
		blacklistHandler := handlers.NewBlacklistHandler(deps.Blacklist)
		blacklist := admin.Group("/blacklist", middleware.HasPermission(models.PermissionBlacklistWrite))
		blacklist.Get("/", blacklistHandler.ListEntries)
		blacklist.Post("/", blacklistHandler.AddEntry)
		blacklist.Delete("/:ip", blacklistHandler.RemoveEntry)
	}

	if deps.FraudChecks != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(deps.FraudChecks)
		checks := admin.Group("/fraud-checks", middleware.HasPermission(models.PermissionAnalyticsRead))
		checks.Get("/", analyticsHandler.ListFraudChecks)
		checks.Get("/stats", analyticsHandler.Stats)
		checks.Get("/:id", analyticsHandler.GetFraudCheck)
	}
}

func scoreLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, ok := middleware.ClaimsFromContext(c); ok {
				return claims.Principal()
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}
