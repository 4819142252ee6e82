package services

import (
	"testing"
	"time"

	"github.com/societa/societa-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenVerifyAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Username, claims.Username)

	// The session row is keyed by the raw refresh token and its expiry
	// mirrors the token's own exp claim.
	var session models.Session
	require.NoError(t, db.First(&session, "refresh_token = ?", pair.RefreshToken).Error)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "test-agent", session.UserAgent)
	assert.Equal(t, "127.0.0.1", session.IPAddress)
	assert.False(t, session.Revoked)
	assert.WithinDuration(t, pair.ExpiresAt, session.ExpiresAt, time.Second)
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())

	_, err := svc.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = svc.VerifyAccess("")
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyAccessRejectsWrongSecret(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com", "alice")

	other := newTestConfig()
	other.JWTSecret = "different-secret"
	pair, err := NewTokenService(db, other).Issue(user, "", "")
	require.NoError(t, err)

	_, err = NewTokenService(db, newTestConfig()).VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyAccessRejectsExpired(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	cfg.JWTAccessExpiry = -time.Minute
	svc := NewTokenService(db, cfg)
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestRotateIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	rotated, rotatedUser, err := svc.Rotate(pair.RefreshToken, "", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, rotatedUser.ID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Replaying the original refresh token must fail even though the
	// first rotation succeeded.
	_, _, err = svc.Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The new lineage still works.
	_, _, err = svc.Rotate(rotated.RefreshToken, "", "")
	require.NoError(t, err)
}

func TestRotateRejectsRevokedSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(pair.RefreshToken))

	_, _, err = svc.Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsExpiredSessionRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	// Token signature is still valid; only the stored row has expired.
	require.NoError(t, db.Model(&models.Session{}).
		Where("refresh_token = ?", pair.RefreshToken).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, _, err = svc.Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsInactiveUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, _, err = svc.Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsForgedToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com", "alice")

	forged := newTestConfig()
	forged.JWTSecret = "attacker-secret"
	pair, err := NewTokenService(db, forged).Issue(user, "", "")
	require.NoError(t, err)

	_, _, err = NewTokenService(db, newTestConfig()).Rotate(pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, newTestConfig())
	user := createTestUser(t, db, "alice@example.com", "alice")

	pair, err := svc.Issue(user, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(pair.RefreshToken))
	require.NoError(t, svc.Revoke(pair.RefreshToken))

	// Revoking a token that never existed is a no-op, not an error.
	require.NoError(t, svc.Revoke("unknown-token"))

	// Revoked rows are retained for audit, never deleted.
	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
