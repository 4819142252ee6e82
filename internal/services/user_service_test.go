package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, *TokenService) {
	t.Helper()
	db := newTestDB(t)
	tokens := NewTokenService(db, newTestConfig())
	return NewUserService(db, tokens), tokens
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Register(&dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "supersecret",
	})
	require.NoError(t, err)

	assert.True(t, user.IsActive)
	assert.Equal(t, "alice", user.DisplayName) // defaults to username
	require.True(t, user.HasPassword())
	assert.NotEqual(t, "supersecret", *user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("supersecret")))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(&dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "supersecret",
	})
	require.NoError(t, err)

	_, err = svc.Register(&dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice2",
		Password: "supersecret",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(&dto.RegisterRequest{
		Email:    "alice2@example.com",
		Username: "alice",
		Password: "supersecret",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{"by email", "alice@example.com", "password123", nil},
		{"by username", "alice", "password123", nil},
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unknown login", "bob", "password123", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(tt.login, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")
	require.NoError(t, svc.db.Model(user).Update("is_active", false).Error)

	_, err := svc.Authenticate("alice", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsPasswordlessAccount(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.GetOrCreateGoogleUser(&dto.GoogleAuthRequest{
		GoogleID: "goog-1",
		Email:    "alice@example.com",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.False(t, user.HasPassword())

	_, err = svc.Authenticate("alice", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetOrCreateGoogleUser(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.GetOrCreateGoogleUser(&dto.GoogleAuthRequest{
		GoogleID:    "goog-1",
		Email:       "alice@example.com",
		Username:    "alice",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.DisplayName)

	// Second callback with the same google id returns the same account.
	fetched, err := svc.GetOrCreateGoogleUser(&dto.GoogleAuthRequest{
		GoogleID: "goog-1",
		Email:    "alice@example.com",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	var count int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateGoogleUserLinksByEmail(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")
	require.Nil(t, user.GoogleID)

	linked, err := svc.GetOrCreateGoogleUser(&dto.GoogleAuthRequest{
		GoogleID: "goog-1",
		Email:    "alice@example.com",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)
	require.NotNil(t, linked.GoogleID)
	assert.Equal(t, "goog-1", *linked.GoogleID)

	// The existing password survives the link.
	_, err = svc.Authenticate("alice", "password123")
	assert.NoError(t, err)
}

func TestLookup(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	byID, err := svc.Lookup(ByID(user.ID))
	require.NoError(t, err)
	assert.Equal(t, user.ID, byID.ID)

	byName, err := svc.Lookup(ByUsername("alice"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = svc.Lookup(ByID(uuid.New()))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Lookup(ByUsername("nobody"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLookupHidesInactiveUser(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")
	require.NoError(t, svc.db.Model(user).Update("is_active", false).Error)

	_, err := svc.Lookup(ByID(user.ID))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Lookup(ByUsername("alice"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	bio := "hello there"
	displayName := "Alice A."
	_, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{
		DisplayName: &displayName,
		Bio:         &bio,
	})
	require.NoError(t, err)

	stored, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", stored.DisplayName)
	assert.Equal(t, "hello there", stored.Bio)
	assert.Empty(t, stored.AvatarURL) // untouched fields keep their value
}

func TestUpdateProfileNoFieldsIsNoOp(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	got, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, user.DisplayName, got.DisplayName)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	err := svc.ChangePassword(user.ID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(user.ID, "password123", "newpassword1"))

	_, err = svc.Authenticate("alice", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("alice", "newpassword1")
	assert.NoError(t, err)
}

func TestChangePasswordOnPasswordlessAccount(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.GetOrCreateGoogleUser(&dto.GoogleAuthRequest{
		GoogleID: "goog-1",
		Email:    "alice@example.com",
		Username: "alice",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(user.ID, "", "newpassword1")
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	svc, tokens := newUserService(t)
	user := createTestUser(t, svc.db, "alice@example.com", "alice")

	pair, err := tokens.Issue(user, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(user.ID))

	_, err = svc.GetByID(user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = tokens.Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Deactivating twice fails: the guarded update matches no active row.
	assert.ErrorIs(t, svc.Deactivate(user.ID), ErrUserNotFound)
}
