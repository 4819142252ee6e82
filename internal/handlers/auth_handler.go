package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/models"
	"github.com/societa/societa-backend/internal/services"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *services.TokenService
}

func NewAuthHandler(users *services.UserService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) || errors.Is(err, services.ErrUsernameTaken) {
			return conflict(c, err.Error())
		}
		slog.Error("registration failed", "action", "register", "error", err)
		return internalError(c)
	}

	return h.respondWithSession(c, user, fiber.StatusCreated)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.Authenticate(req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return unauthorized(c, err.Error())
		}
		slog.Error("login failed", "action", "login", "error", err)
		return internalError(c)
	}

	return h.respondWithSession(c, user, fiber.StatusOK)
}

// GoogleCallback is the single external-identity path: the OAuth layer has
// already verified the identity; this endpoint only does create-or-fetch
// plus session issuance.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	var req dto.GoogleAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.GetOrCreateGoogleUser(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			return conflict(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return unauthorized(c, "Account is deactivated")
		}
		slog.Error("google sign-in failed", "action", "google_auth", "error", err)
		return internalError(c)
	}

	return h.respondWithSession(c, user, fiber.StatusOK)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	pair, user, err := h.tokens.Rotate(req.RefreshToken, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			return unauthorized(c, err.Error())
		}
		slog.Error("token rotation failed", "action", "refresh", "error", err)
		return internalError(c)
	}

	return c.JSON(authResponse(pair, user))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.tokens.Revoke(req.RefreshToken); err != nil {
		slog.Error("logout failed", "action", "logout", "error", err)
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, user *models.User, status int) error {
	pair, err := h.tokens.Issue(user, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		slog.Error("session issuance failed", "action", "issue_session", "user_id", user.ID.String(), "error", err)
		return internalError(c)
	}
	return c.Status(status).JSON(authResponse(pair, user))
}

func authResponse(pair *services.TokenPair, user *models.User) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User: dto.UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		},
	}
}
