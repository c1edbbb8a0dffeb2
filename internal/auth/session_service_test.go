package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/database/testutil"
	"github.com/bistiadi/portfolio/internal/models"
)

func newSessionTestEnv(t *testing.T, clock func() time.Time) (*gorm.DB, *SessionService, *models.User) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := NewJWTService(JWTConfig{
		Secret: "unit-test-secret-key-32-bytes!!!",
		Clock:  clock,
	})
	require.NoError(t, err)

	svc, err := NewSessionService(db, jwtSvc, SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           clock,
	})
	require.NoError(t, err)

	user := &models.User{
		Username: "sessioned",
		Email:    "sessioned@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)

	return db, svc, user
}

func TestSessionServiceCreateAndRefreshRotatesToken(t *testing.T) {
	_, svc, user := newSessionTestEnv(t, time.Now)

	pair, session, err := svc.CreateSession(user.ID, SessionMetadata{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, user.ID, session.UserID)

	rotated, refreshed, err := svc.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, session.ID, refreshed.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old refresh token must be unusable after rotation.
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceRevokeBlocksRefresh(t *testing.T) {
	_, svc, user := newSessionTestEnv(t, time.Now)

	pair, session, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))
	require.ErrorIs(t, svc.RevokeSession(session.ID), ErrSessionNotFound)

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionServiceExpiryAndCleanup(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }

	db, svc, user := newSessionTestEnv(t, clock)

	pair, _, err := svc.CreateSession(user.ID, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	require.Zero(t, count)
}
