package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/middleware"
	"github.com/societa/societa-backend/internal/services"
)

type BlockHandler struct {
	relationships *services.RelationshipService
}

func NewBlockHandler(relationships *services.RelationshipService) *BlockHandler {
	return &BlockHandler{relationships: relationships}
}

func (h *BlockHandler) Block(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	var req dto.BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	block, err := h.relationships.Block(caller.ID, req.BlockedID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfTarget):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrAlreadyBlocked):
			return conflict(c, err.Error())
		}
		slog.Error("block failed", "action", "block", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User blocked", "block": block})
}

func (h *BlockHandler) Unblock(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	blockedID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.relationships.Unblock(caller.ID, blockedID); err != nil {
		if errors.Is(err, services.ErrBlockNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("unblock failed", "action", "unblock", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "User unblocked"})
}

func (h *BlockHandler) ListBlocked(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	page, limit, offset := pagination(c)

	users, total, err := h.relationships.ListBlocked(caller.ID, limit, offset)
	if err != nil {
		slog.Error("block listing failed", "action", "list_blocked", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	items := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewProfileResponse(&users[i], false))
	}
	return c.JSON(dto.NewListResponse(total, page, limit, items))
}
