package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/middleware"
	"github.com/societa/societa-backend/internal/models"
	"github.com/societa/societa-backend/internal/services"
)

type RelationshipHandler struct {
	relationships *services.RelationshipService
}

func NewRelationshipHandler(relationships *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

func (h *RelationshipHandler) SendRequest(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	var req dto.SendFriendRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	relationship, err := h.relationships.SendRequest(caller.ID, req.AddresseeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfTarget), errors.Is(err, services.ErrTargetBlocked):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrBlocked):
			return forbidden(c, err.Error())
		case errors.Is(err, services.ErrAlreadyFriends), errors.Is(err, services.ErrRequestExists):
			return conflict(c, err.Error())
		}
		slog.Error("friend request failed", "action", "send_request", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	status := fiber.StatusCreated
	message := "Friend request sent"
	if relationship.Status == models.RelationshipAccepted {
		status = fiber.StatusOK
		message = "Friend request accepted"
	}
	return c.Status(status).JSON(fiber.Map{"message": message, "friendship": relationship})
}

func (h *RelationshipHandler) Respond(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	requestID, err := uuid.Parse(c.Params("request_id"))
	if err != nil {
		return badRequest(c, "Invalid request id")
	}

	var req dto.RespondFriendRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	relationship, err := h.relationships.Respond(caller.ID, requestID, req.Action)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("friend request response failed", "action", "respond", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Friend request " + req.Action, "friendship": relationship})
}

func (h *RelationshipHandler) RemoveFriend(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	friendID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.relationships.RemoveFriend(caller.ID, friendID); err != nil {
		if errors.Is(err, services.ErrFriendshipNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("friend removal failed", "action", "remove_friend", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Friend removed"})
}

func (h *RelationshipHandler) ListFriends(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	page, limit, offset := pagination(c)

	friends, total, err := h.relationships.ListFriends(caller.ID, limit, offset)
	if err != nil {
		slog.Error("friend listing failed", "action", "list_friends", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	items := make([]dto.ProfileResponse, 0, len(friends))
	for i := range friends {
		items = append(items, dto.NewProfileResponse(&friends[i], false))
	}
	return c.JSON(dto.NewListResponse(total, page, limit, items))
}

func (h *RelationshipHandler) ListIncoming(c *fiber.Ctx) error {
	return h.listRequests(c, "incoming")
}

func (h *RelationshipHandler) ListOutgoing(c *fiber.Ctx) error {
	return h.listRequests(c, "outgoing")
}

func (h *RelationshipHandler) listRequests(c *fiber.Ctx, direction string) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	page, limit, offset := pagination(c)

	var (
		requests []models.Relationship
		total    int64
	)
	if direction == "incoming" {
		requests, total, err = h.relationships.ListIncoming(caller.ID, limit, offset)
	} else {
		requests, total, err = h.relationships.ListOutgoing(caller.ID, limit, offset)
	}
	if err != nil {
		slog.Error("request listing failed", "action", "list_requests", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	items := make([]dto.FriendRequestResponse, 0, len(requests))
	for i := range requests {
		other := &requests[i].Requester
		if direction == "outgoing" {
			other = &requests[i].Addressee
		}
		items = append(items, dto.FriendRequestResponse{
			ID:        requests[i].ID,
			Status:    requests[i].Status,
			CreatedAt: requests[i].CreatedAt,
			User:      dto.NewProfileResponse(other, false),
		})
	}
	return c.JSON(dto.NewListResponse(total, page, limit, items))
}
