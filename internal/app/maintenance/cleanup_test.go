package maintenance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/bistiadi/portfolio/internal/auth"
	"github.com/bistiadi/portfolio/internal/database/testutil"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/internal/storage"
)

func TestCleanerRunOncePurgesSessionsAndOrphanPhotos(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Now()
	clock := func() time.Time { return current }

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "unit-test-secret-key-32-bytes!!!",
		Clock:  clock,
	})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           clock,
	})
	require.NoError(t, err)

	user := &models.User{
		Username: "keeper",
		Email:    "keeper@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)

	_, _, err = sessionSvc.CreateSession(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	photoStore, err := storage.NewFilesystemPhotoStore(t.TempDir())
	require.NoError(t, err)

	_, err = photoStore.Save(context.Background(), "keeper", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = photoStore.Save(context.Background(), "orphan", "b.jpg", strings.NewReader("y"))
	require.NoError(t, err)

	cleaner := NewCleaner(db, sessionSvc, photoStore, WithNow(clock))

	current = current.Add(2 * time.Hour)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	_, err = photoStore.Stat(context.Background(), "keeper/photo.jpg")
	require.NoError(t, err)
	_, err = photoStore.Stat(context.Background(), "orphan/photo.jpg")
	require.Error(t, err)
}

func TestCleanerSkipsMissingDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.False(t, cleaner.enabled)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "unit-test-secret-key-32-bytes!!!"})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	photoStore, err := storage.NewFilesystemPhotoStore(t.TempDir())
	require.NoError(t, err)

	cleaner := NewCleaner(db, sessionSvc, photoStore,
		WithSessionSchedule("@every 1h"),
		WithPhotoSchedule("@every 24h"),
	)
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	<-stopCtx.Done()
}
