package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/societa/societa-backend/internal/config"
	"github.com/societa/societa-backend/internal/handlers"
	"github.com/societa/societa-backend/internal/middleware"
	"github.com/societa/societa-backend/internal/services"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	relationships *services.RelationshipService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	relationshipHandler *handlers.RelationshipHandler,
	blockHandler *handlers.BlockHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter 10 req/min limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/google", authHandler.GoogleCallback)

	// Everything below requires a valid access token resolving to an
	// active user.
	protected := api.Group("", middleware.Protected(cfg), middleware.ActiveUser(db))

	protected.Post("/auth/logout", authHandler.Logout)

	users := protected.Group("/users")
	users.Get("/me", userHandler.Me)
	users.Put("/me", userHandler.UpdateProfile)
	users.Put("/me/password", userHandler.ChangePassword)
	users.Delete("/me", userHandler.DeactivateAccount)
	users.Get("/:identifier", userHandler.GetProfile)

	notBlocked := middleware.NotBlocked(relationships)

	friends := protected.Group("/friends")
	friends.Get("/", relationshipHandler.ListFriends)
	friends.Post("/requests", relationshipHandler.SendRequest)
	friends.Get("/requests/incoming", relationshipHandler.ListIncoming)
	friends.Get("/requests/outgoing", relationshipHandler.ListOutgoing)
	friends.Post("/requests/:request_id/respond", relationshipHandler.Respond)
	friends.Delete("/:user_id", notBlocked, relationshipHandler.RemoveFriend)

	blocks := protected.Group("/blocks")
	blocks.Get("/", blockHandler.ListBlocked)
	blocks.Post("/", blockHandler.Block)
	blocks.Delete("/:user_id", blockHandler.Unblock)
}
