package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/authz"
	"github.com/bistiadi/portfolio/internal/database/testutil"
	"github.com/bistiadi/portfolio/internal/models"
)

func newProfileService(t *testing.T, db *gorm.DB) *ProfileService {
	t.Helper()
	predicate, err := authz.NewPredicate(db)
	require.NoError(t, err)
	svc, err := NewProfileService(db, predicate)
	require.NoError(t, err)
	return svc
}

func createUser(t *testing.T, db *gorm.DB, username, email string, superuser bool) *models.User {
	t.Helper()
	users := newUserService(t, db)
	user, err := users.Create(context.Background(), CreateUserInput{
		Username:    username,
		Email:       email,
		Password:    "s3cretpass!",
		FirstName:   "Budi",
		LastName:    "Istiadi",
		IsSuperuser: superuser,
	})
	require.NoError(t, err)
	return user
}

func TestProfileServiceGetOrCreateIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "testuser1", "testuser1@gmail.com", false)

	first, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, user.ID, first.UserID)
	require.Equal(t, "Budi", first.FirstName)
	require.Equal(t, "Istiadi", first.LastName)

	second, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProfileServiceGetOrCreateKeyedOnUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "renamed", "renamed@example.com", false)

	first, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	// A later name change on the user must still resolve to the same profile.
	require.NoError(t, db.Model(user).Update("first_name", "Slamet").Error)
	user.FirstName = "Slamet"

	second, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Budi", second.FirstName)
}

func TestProfileServiceUpdateSyncsNamesToUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "syncer", "syncer@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	firstName := "Agus"
	lastName := "Wibowo"
	updated, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{
		FirstName: &firstName,
		LastName:  &lastName,
	})
	require.NoError(t, err)
	require.Equal(t, "Agus", updated.FirstName)

	var owner models.User
	require.NoError(t, db.First(&owner, "id = ?", user.ID).Error)
	require.Equal(t, "Agus", owner.FirstName)
	require.Equal(t, "Wibowo", owner.LastName)
}

func TestProfileServiceUpdateBlankNameDoesNotSyncToUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "blanked", "blanked@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	// Blank names are valid on the profile but must not erase the user's.
	blank := ""
	updated, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{
		FirstName: &blank,
		LastName:  &blank,
	})
	require.NoError(t, err)
	require.Empty(t, updated.FirstName)
	require.Empty(t, updated.LastName)

	var owner models.User
	require.NoError(t, db.First(&owner, "id = ?", user.ID).Error)
	require.Equal(t, "Budi", owner.FirstName)
	require.Equal(t, "Istiadi", owner.LastName)

	// A non-empty name on one side still syncs alone.
	lastName := "Wibowo"
	_, err = svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{LastName: &lastName})
	require.NoError(t, err)

	require.NoError(t, db.First(&owner, "id = ?", user.ID).Error)
	require.Equal(t, "Budi", owner.FirstName)
	require.Equal(t, "Wibowo", owner.LastName)
}

func TestProfileServiceUpdateRejectsInvalidPhone(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "phoney", "phoney@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	phone := "ckjsbffbkw"
	_, err = svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{Phone: &phone})
	require.ErrorIs(t, err, ErrInvalidPhone)

	var stored models.Profile
	require.NoError(t, db.First(&stored, "id = ?", profile.ID).Error)
	require.Empty(t, stored.Phone)

	valid := "+6281234567890"
	updated, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{Phone: &valid})
	require.NoError(t, err)
	require.Equal(t, valid, updated.Phone)
}

func TestProfileServiceUpdateOwnerIsReadOnlyForNonSuperusers(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	owner := createUser(t, db, "owner", "owner@example.com", false)
	other := createUser(t, db, "other", "other@example.com", false)
	root := createUser(t, db, "root", "root@example.com", true)

	profile, err := svc.GetOrCreate(context.Background(), owner)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), owner, profile.ID, UpdateProfileInput{UserID: &other.ID})
	require.ErrorIs(t, err, ErrOwnerReadOnly)

	reassigned, err := svc.Update(context.Background(), root, profile.ID, UpdateProfileInput{UserID: &other.ID})
	require.NoError(t, err)
	require.Equal(t, other.ID, reassigned.UserID)
}

func TestProfileServiceUpdateHiddenProfileLooksMissing(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	owner := createUser(t, db, "hidden", "hidden@example.com", false)
	intruder := createUser(t, db, "intruder", "intruder@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), owner)
	require.NoError(t, err)

	address := "Jl. Merdeka 17"
	_, err = svc.Update(context.Background(), intruder, profile.ID, UpdateProfileInput{Address: &address})
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileServiceUpdateReplacesExpertise(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "skilled", "skilled@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	var labels []models.Expertise
	require.NoError(t, db.Where("name IN ?", []string{"Go", "Django"}).Find(&labels).Error)
	require.Len(t, labels, 2)

	ids := []string{labels[0].ID, labels[1].ID}
	updated, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{ExpertiseIDs: &ids})
	require.NoError(t, err)
	require.Len(t, updated.Expertise, 2)
	// Associations come back alphabetically.
	require.Equal(t, "Django", updated.Expertise[0].Name)
	require.Equal(t, "Go", updated.Expertise[1].Name)

	unknown := []string{"00000000-0000-0000-0000-000000000000"}
	_, err = svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{ExpertiseIDs: &unknown})
	require.Error(t, err)
}

func TestProfileServiceLocationPairEnforced(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := newProfileService(t, db)
	user := createUser(t, db, "located", "located@example.com", false)

	profile, err := svc.GetOrCreate(context.Background(), user)
	require.NoError(t, err)

	lat := -6.2088
	_, err = svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{Latitude: &lat})
	require.ErrorIs(t, err, ErrIncompleteLocation)

	lng := 106.8456
	updated, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{
		Latitude:  &lat,
		Longitude: &lng,
	})
	require.NoError(t, err)
	require.True(t, updated.HasLocation())

	cleared, err := svc.Update(context.Background(), user, profile.ID, UpdateProfileInput{ClearLocation: true})
	require.NoError(t, err)
	require.False(t, cleared.HasLocation())
}
