package handlers

import (
	"context"
	"errors"
	"time"

	"orus-risk/internal/logging"
	"orus-risk/internal/models"
	"orus-risk/internal/repositories"
	"orus-risk/internal/services/risk"
	"orus-risk/internal/utils/pagination"
	"orus-risk/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultStatsWindow = 30 * 24 * time.Hour
	maxStatsWindow     = 366 * 24 * time.Hour
)

// FraudCheckReader is the read side of the audit trail.
type FraudCheckReader interface {
	Get(ctx context.Context, id string) (*models.FraudCheck, error)
	List(ctx context.Context, filter models.FraudCheckFilter, limit, offset int) ([]models.FraudCheck, int64, error)
	Stats(ctx context.Context, from, to time.Time) (*models.FraudCheckStats, error)
}

type AnalyticsHandler struct {
	checks FraudCheckReader
	now    func() time.Time
}

func NewAnalyticsHandler(checks FraudCheckReader) *AnalyticsHandler {
	return &AnalyticsHandler{checks: checks, now: time.Now}
}

// ListFraudChecks pages through recorded verdicts, newest first.
func (h *AnalyticsHandler) ListFraudChecks(c *fiber.Ctx) error {
	filter := models.FraudCheckFilter{ActorID: c.Query("actor_id")}

	if level := c.Query("level"); level != "" {
		if !risk.RiskLevel(level).Valid() {
			return response.BadRequest(c, "level must be one of LOW, MEDIUM, HIGH, CRITICAL")
		}
		filter.RiskLevel = level
	}

	var err error
	if filter.From, err = parseTime(c.Query("from")); err != nil {
		return response.BadRequest(c, "from must be an RFC3339 timestamp")
	}
	if filter.To, err = parseTime(c.Query("to")); err != nil {
		return response.BadRequest(c, "to must be an RFC3339 timestamp")
	}

	p := pagination.ParseFromRequest(c)
	checks, total, err := h.checks.List(c.UserContext(), filter, p.Limit, p.Offset)
	if err != nil {
		logging.L(c.UserContext()).Error("fraud check listing failed", "error", err)
		return response.ServerError(c, "Failed to list fraud checks")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, checks))
}

// GetFraudCheck returns a single recorded verdict by id.
func (h *AnalyticsHandler) GetFraudCheck(c *fiber.Ctx) error {
	check, err := h.checks.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrFraudCheckNotFound) {
			return response.NotFound(c, "Fraud check not found")
		}
		logging.L(c.UserContext()).Error("fraud check lookup failed", "id", c.Params("id"), "error", err)
		return response.ServerError(c, "Failed to get fraud check")
	}
	return response.Success(c, "Fraud check retrieved", check)
}

// Stats summarizes verdicts in [from, to). Defaults to the last 30 days.
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return response.BadRequest(c, "to must be an RFC3339 timestamp")
	}
	if to.IsZero() {
		to = h.now().UTC()
	}
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return response.BadRequest(c, "from must be an RFC3339 timestamp")
	}
	if from.IsZero() {
		from = to.Add(-defaultStatsWindow)
	}
	if !from.Before(to) {
		return response.BadRequest(c, "from must be before to")
	}
	if to.Sub(from) > maxStatsWindow {
		return response.BadRequest(c, "range must not exceed 366 days")
	}

	stats, err := h.checks.Stats(c.UserContext(), from, to)
	if err != nil {
		logging.L(c.UserContext()).Error("fraud check stats failed", "error", err)
		return response.ServerError(c, "Failed to compute fraud check stats")
	}
	return response.Success(c, "Fraud check stats", stats)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
