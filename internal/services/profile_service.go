package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/authz"
	"github.com/bistiadi/portfolio/internal/models"
	apperrors "github.com/bistiadi/portfolio/pkg/errors"
	"github.com/bistiadi/portfolio/pkg/logger"
	"github.com/bistiadi/portfolio/pkg/metrics"
	"github.com/bistiadi/portfolio/pkg/validator"
)

var (
	// ErrProfileNotFound indicates the requested profile does not exist or is
	// not visible to the requester.
	ErrProfileNotFound = apperrors.New("PROFILE_NOT_FOUND", "Profile not found", http.StatusNotFound)
	// ErrOwnerReadOnly indicates a non-superuser tried to reassign a profile's owner.
	ErrOwnerReadOnly = apperrors.New("OWNER_READ_ONLY", "Profile owner cannot be changed", http.StatusForbidden)
	// ErrInvalidPhone indicates the phone number is not in E.164 form.
	ErrInvalidPhone = apperrors.New("INVALID_PHONE", "Phone number must be in international format", http.StatusBadRequest)
	// ErrIncompleteLocation indicates only one of latitude/longitude was supplied.
	ErrIncompleteLocation = apperrors.New("INCOMPLETE_LOCATION", "Latitude and longitude must be set together", http.StatusBadRequest)
)

// UpdateProfileInput carries a partial profile update. Nil pointers leave the
// corresponding field untouched.
type UpdateProfileInput struct {
	UserID        *string
	FirstName     *string
	LastName      *string
	Address       *string
	Phone         *string
	Latitude      *float64
	Longitude     *float64
	ClearLocation bool
	ExpertiseIDs  *[]string
}

// ProfileService manages portfolio profiles and their lazy provisioning.
type ProfileService struct {
	db        *gorm.DB
	predicate *authz.Predicate
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(db *gorm.DB, predicate *authz.Predicate) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	if predicate == nil {
		return nil, errors.New("profile service: predicate is required")
	}
	return &ProfileService{db: db, predicate: predicate}, nil
}

// GetOrCreate returns the profile owned by the user, creating it on first
// visit. Lookup and creation are keyed strictly on the owning user, so a
// user whose name changed still resolves to the same profile. The names are
// copied from the user record only when the row is first created.
func (s *ProfileService) GetOrCreate(ctx context.Context, user *models.User) (*models.Profile, error) {
	ctx = ensureContext(ctx)
	if user == nil {
		return nil, errors.New("profile service: user is required")
	}

	profile := models.Profile{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	result := s.db.WithContext(ctx).
		Where(models.Profile{UserID: user.ID}).
		Attrs(profile).
		FirstOrCreate(&profile)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			// Lost a concurrent first-visit race; the winner's row is authoritative.
			return s.getByUserID(ctx, user.ID)
		}
		return nil, fmt.Errorf("profile service: get or create: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ProfileProvisions.Inc()
		logger.WithModule("profiles").Info("provisioned profile", zap.String("username", user.Username))
	}

	if err := s.loadAssociations(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetVisible loads a profile by ID when the requester is allowed to see it.
// Hidden and missing profiles are indistinguishable to the caller.
func (s *ProfileService) GetVisible(ctx context.Context, requester *models.User, profileID string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	ok, err := s.predicate.CanViewProfile(ctx, requester, profileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).
		Preload("User").
		Preload("Expertise", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		First(&profile, "id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: get profile: %w", err)
	}
	return &profile, nil
}

// Visible returns the profiles the requester may see or edit. A non-empty
// query narrows the result by name, phone or owner email.
func (s *ProfileService) Visible(ctx context.Context, requester *models.User, query string) ([]models.Profile, error) {
	ctx = ensureContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return s.predicate.VisibleProfiles(ctx, requester)
	}
	if requester == nil {
		return nil, errors.New("profile service: requester is required")
	}

	like := "%" + query + "%"
	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Scopes(authz.ProfileScope(requester)).
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("profiles.first_name LIKE ? OR profiles.last_name LIKE ? OR profiles.phone LIKE ? OR users.email LIKE ?",
			like, like, like, like).
		Preload("User").
		Preload("Expertise", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		Order("profiles.created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("profile service: search profiles: %w", err)
	}
	return profiles, nil
}

// ListAll returns every profile with its owner and expertise, newest first.
// Used by the public portfolio listing; no requester gating applies.
func (s *ProfileService) ListAll(ctx context.Context) ([]models.Profile, error) {
	ctx = ensureContext(ctx)

	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Expertise", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		Order("created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("profile service: list profiles: %w", err)
	}
	return profiles, nil
}

// Update applies a partial update to a profile the requester may edit, then
// mirrors the profile names onto the owning user record in the same
// transaction. Non-superusers cannot reassign the owning user.
func (s *ProfileService) Update(ctx context.Context, requester *models.User, profileID string, input UpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	ok, err := s.predicate.CanViewProfile(ctx, requester, profileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}

	if input.UserID != nil && !authz.CanReassignOwner(requester) {
		return nil, ErrOwnerReadOnly
	}

	if input.Phone != nil && *input.Phone != "" {
		if err := validator.ValidateVar(*input.Phone, "e164"); err != nil {
			return nil, ErrInvalidPhone
		}
	}
	if !input.ClearLocation && (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, ErrIncompleteLocation
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", profileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		if input.UserID != nil {
			profile.UserID = strings.TrimSpace(*input.UserID)
		}
		if input.FirstName != nil {
			profile.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			profile.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Address != nil {
			profile.Address = strings.TrimSpace(*input.Address)
		}
		if input.Phone != nil {
			profile.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.ClearLocation {
			profile.Latitude = nil
			profile.Longitude = nil
		} else if input.Latitude != nil && input.Longitude != nil {
			profile.Latitude = input.Latitude
			profile.Longitude = input.Longitude
		}

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		if input.ExpertiseIDs != nil {
			items, err := loadExpertise(tx, *input.ExpertiseIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&profile).Association("Expertise").Replace(items); err != nil {
				return fmt.Errorf("replace expertise: %w", err)
			}
		}

		// Keep the owning user's display names in step with the profile.
		// Blank profile names are valid and must not erase the user's.
		sync := map[string]any{}
		if profile.FirstName != "" {
			sync["first_name"] = profile.FirstName
		}
		if profile.LastName != "" {
			sync["last_name"] = profile.LastName
		}
		if len(sync) == 0 {
			return nil
		}
		return tx.Model(&models.User{}).
			Where("id = ?", profile.UserID).
			Updates(sync).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("PROFILE_CONFLICT", "User already owns a profile", http.StatusConflict)
		}
		return nil, fmt.Errorf("profile service: update profile: %w", err)
	}

	if err := s.loadAssociations(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetPhoto records the stored photo path on a profile the requester may edit.
func (s *ProfileService) SetPhoto(ctx context.Context, requester *models.User, profileID, photoPath string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	ok, err := s.predicate.CanViewProfile(ctx, requester, profileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).First(&profile, "id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load profile: %w", err)
	}

	profile.PhotoPath = photoPath
	if err := s.db.WithContext(ctx).Model(&profile).
		Update("photo_path", photoPath).Error; err != nil {
		return nil, fmt.Errorf("profile service: set photo: %w", err)
	}

	if err := s.loadAssociations(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileService) getByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("profile service: get by user: %w", err)
	}
	if err := s.loadAssociations(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileService) loadAssociations(ctx context.Context, profile *models.Profile) error {
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Expertise", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		First(profile, "id = ?", profile.ID).Error
	if err != nil {
		return fmt.Errorf("profile service: load associations: %w", err)
	}
	return nil
}

func loadExpertise(tx *gorm.DB, ids []string) ([]models.Expertise, error) {
	if len(ids) == 0 {
		return []models.Expertise{}, nil
	}

	var items []models.Expertise
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load expertise: %w", err)
	}
	if len(items) != len(ids) {
		return nil, apperrors.NewBadRequest("unknown expertise identifier")
	}
	return items, nil
}
