package middleware

import (
	"log/slog"

	"orus-risk/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on
// the response and stores it with the logger in the request's user context,
// so logging.L(ctx) in services tags every line with it.
func RequestID(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Locals("request_id", id)

		ctx := logging.WithRequestID(c.UserContext(), id)
		if logger != nil {
			ctx = logging.WithLogger(ctx, logger)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
