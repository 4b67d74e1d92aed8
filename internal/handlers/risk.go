package handlers

import (
	"errors"

	"orus-risk/internal/logging"
	"orus-risk/internal/services/risk"
	"orus-risk/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type RiskHandler struct {
	riskService risk.Service
}

func NewRiskHandler(riskService risk.Service) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// ScoreTransaction scores the descriptor in the request body. Validation
// failures return 400 with every offending field; dependency outages still
// return 200 with a degraded verdict.
func (h *RiskHandler) ScoreTransaction(c *fiber.Ctx) error {
	var desc risk.TransactionDescriptor
	if err := c.BodyParser(&desc); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if method, err := risk.ParsePaymentMethod(string(desc.PaymentMethod)); err == nil {
		desc.PaymentMethod = method
	}

	ctx := c.UserContext()
	verdict, err := h.riskService.ScoreTransaction(ctx, desc.ActorID, desc)
	if err != nil {
		var invalid *risk.InvalidDescriptorError
		if errors.As(err, &invalid) {
			return response.ValidationError(c, "Invalid transaction descriptor", invalid.Errors)
		}
		logging.L(ctx).Error("risk scoring failed", "actor_id", desc.ActorID, "error", err)
		return response.ServerError(c, "Failed to score transaction")
	}

	return response.Success(c, verdict.Recommendation.Description(), verdict)
}
