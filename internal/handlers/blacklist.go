package handlers

import (
	"context"
	"errors"

	"orus-risk/internal/logging"
	"orus-risk/internal/middleware"
	"orus-risk/internal/models"
	"orus-risk/internal/repositories"
	"orus-risk/internal/utils/pagination"
	"orus-risk/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// BlacklistStore is the administrative side of the IP blacklist.
type BlacklistStore interface {
	Add(ctx context.Context, ip, reason, addedBy string) (*models.BlacklistEntry, error)
	Remove(ctx context.Context, ip string) error
	List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, int64, error)
}

type BlacklistHandler struct {
	store BlacklistStore
}

func NewBlacklistHandler(store BlacklistStore) *BlacklistHandler {
	return &BlacklistHandler{store: store}
}

// AddEntry blocks an address. Entries take effect on the next score request.
func (h *BlacklistHandler) AddEntry(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		IPAddress string `json:"ip_address"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.store.Add(c.UserContext(), input.IPAddress, input.Reason, claims.Principal())
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidBlacklistEntry) {
			return response.BadRequest(c, err.Error())
		}
		logging.L(c.UserContext()).Error("blacklist add failed", "ip", input.IPAddress, "error", err)
		return response.ServerError(c, "Failed to add blacklist entry")
	}

	logging.L(c.UserContext()).Info("ip blacklisted",
		"ip", entry.IPAddress, "reason", entry.Reason, "added_by", entry.AddedBy)
	return response.Created(c, "IP address blacklisted", entry)
}

func (h *BlacklistHandler) RemoveEntry(c *fiber.Ctx) error {
	ip := c.Params("ip")
	err := h.store.Remove(c.UserContext(), ip)
	if errors.Is(err, repositories.ErrBlacklistEntryNotFound) {
		return response.NotFound(c, "Blacklist entry not found")
	}
	if err != nil {
		logging.L(c.UserContext()).Error("blacklist remove failed", "ip", ip, "error", err)
		return response.ServerError(c, "Failed to remove blacklist entry")
	}
	return response.Success(c, "IP address removed from blacklist", fiber.Map{"ip_address": ip})
}

func (h *BlacklistHandler) ListEntries(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	entries, total, err := h.store.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		logging.L(c.UserContext()).Error("blacklist list failed", "error", err)
		return response.ServerError(c, "Failed to list blacklist")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, entries))
}
