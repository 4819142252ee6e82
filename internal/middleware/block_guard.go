package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/services"
)

// NotBlocked is the reusable visibility guard for routes that touch another
// user's data via a :user_id path param. It denies the request when the
// target has blocked the caller. Absent or self targets pass through.
func NotBlocked(relationships *services.RelationshipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := CurrentUser(c)
		if err != nil {
			return unauthorized(c)
		}

		param := c.Params("user_id")
		if param == "" {
			return c.Next()
		}
		targetID, err := uuid.Parse(param)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid user id",
			})
		}
		if targetID == caller.ID {
			return c.Next()
		}

		blocked, err := relationships.IsBlocked(caller.ID, targetID)
		if err != nil {
			return fiber.ErrInternalServerError
		}
		if blocked {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Access denied",
			})
		}
		return c.Next()
	}
}
