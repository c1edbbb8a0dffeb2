package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/database/testutil"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/pkg/crypto"
)

func seedLocalUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username: "localuser",
		Email:    email,
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLocalProviderAuthenticateByEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedLocalUser(t, db, "testuser1@gmail.com", "s3cretpass!")

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	user, err := provider.Authenticate(AuthenticateInput{
		Email:     "TestUser1@Gmail.com",
		Password:  "s3cretpass!",
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	require.Equal(t, "testuser1@gmail.com", user.Email)
	require.NotNil(t, user.LastLoginAt)
	require.Equal(t, "203.0.113.7", user.LastLoginIP)

	_, err = provider.Authenticate(AuthenticateInput{
		Email:    "bad@x.com",
		Password: "whatever",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProviderLockoutAfterRepeatedFailures(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedLocalUser(t, db, "locked@example.com", "s3cretpass!")

	provider, err := NewLocalProvider(db, LocalConfig{
		LockoutThreshold: 3,
		LockoutDuration:  10 * time.Minute,
		Clock:            clock,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = provider.Authenticate(AuthenticateInput{Email: "locked@example.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = provider.Authenticate(AuthenticateInput{Email: "locked@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrAccountLocked)

	// Correct password is rejected while the lock is active.
	_, err = provider.Authenticate(AuthenticateInput{Email: "locked@example.com", Password: "s3cretpass!"})
	require.ErrorIs(t, err, ErrAccountLocked)

	current = current.Add(11 * time.Minute)

	user, err := provider.Authenticate(AuthenticateInput{Email: "locked@example.com", Password: "s3cretpass!"})
	require.NoError(t, err)
	require.Zero(t, user.FailedAttempts)
}

func TestLocalProviderRejectsDisabledAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedLocalUser(t, db, "gone@example.com", "s3cretpass!")
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	_, err = provider.Authenticate(AuthenticateInput{Email: "gone@example.com", Password: "s3cretpass!"})
	require.ErrorIs(t, err, ErrAccountDisabled)
}
