package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/models"
	"github.com/societa/societa-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGuardedApp skips the JWT layer and injects the caller directly, so the
// guard can be exercised in isolation.
func newGuardedApp(caller *models.User, relationships *services.RelationshipService) *fiber.App {
	app := fiber.New()
	app.Get("/users/:user_id",
		func(c *fiber.Ctx) error {
			c.Locals("current_user", caller)
			return c.Next()
		},
		NotBlocked(relationships),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) },
	)
	return app
}

func TestNotBlocked(t *testing.T) {
	db := newTestDB(t)
	relationships := services.NewRelationshipService(db)
	alice := createTestUser(t, db, "alice@example.com", "alice")
	bob := createTestUser(t, db, "bob@example.com", "bob")

	_, err := relationships.Block(bob.ID, alice.ID)
	require.NoError(t, err)

	app := newGuardedApp(alice, relationships)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"blocked by target", bob.ID.String(), fiber.StatusForbidden},
		{"self target passes", alice.ID.String(), fiber.StatusOK},
		{"unrelated target passes", uuid.NewString(), fiber.StatusOK},
		{"malformed target", "not-a-uuid", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/users/"+tt.target, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestNotBlockedIsDirectional(t *testing.T) {
	db := newTestDB(t)
	relationships := services.NewRelationshipService(db)
	alice := createTestUser(t, db, "alice@example.com", "alice")
	bob := createTestUser(t, db, "bob@example.com", "bob")

	_, err := relationships.Block(bob.ID, alice.ID)
	require.NoError(t, err)

	// Bob blocked Alice, so Bob can still see Alice.
	app := newGuardedApp(bob, relationships)
	req := httptest.NewRequest(fiber.MethodGet, "/users/"+alice.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
