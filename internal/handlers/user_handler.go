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

type UserHandler struct {
	users         *services.UserService
	relationships *services.RelationshipService
}

func NewUserHandler(users *services.UserService, relationships *services.RelationshipService) *UserHandler {
	return &UserHandler{users: users, relationships: relationships}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	return c.JSON(dto.NewProfileResponse(user, true))
}

// GetProfile resolves a profile by id or username. The route layer decides
// which lookup to use: a path segment that parses as a UUID is an id
// lookup, anything else is a username lookup.
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	user, err := h.users.Lookup(lookupKeyFromParam(c.Params("identifier")))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("profile lookup failed", "action", "get_profile", "error", err)
		return internalError(c)
	}

	if user.ID != caller.ID {
		blocked, err := h.relationships.IsBlocked(caller.ID, user.ID)
		if err != nil {
			slog.Error("block check failed", "action", "get_profile", "error", err)
			return internalError(c)
		}
		if blocked {
			return forbidden(c, "Access denied")
		}
	}

	return c.JSON(dto.NewProfileResponse(user, user.ID == caller.ID))
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.UpdateProfile(caller.ID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("profile update failed", "action", "update_profile", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(dto.NewProfileResponse(user, true))
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.users.ChangePassword(caller.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return unauthorized(c, "Incorrect current password")
		case errors.Is(err, services.ErrNoPassword):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return notFound(c, err.Error())
		}
		slog.Error("password change failed", "action", "change_password", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// DeactivateAccount soft-deletes the caller's account and revokes every
// session. The rows stay in place; reads filter on the active flag.
func (h *UserHandler) DeactivateAccount(c *fiber.Ctx) error {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	if err := h.users.Deactivate(caller.ID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, err.Error())
		}
		slog.Error("account deactivation failed", "action", "deactivate", "user_id", caller.ID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Account deactivated successfully"})
}

// lookupKeyFromParam keeps the id-vs-username decision at the HTTP
// boundary: the store receives a tagged key, never a string to classify.
func lookupKeyFromParam(identifier string) services.LookupKey {
	if id, err := uuid.Parse(identifier); err == nil {
		return services.ByID(id)
	}
	return services.ByUsername(identifier)
}
