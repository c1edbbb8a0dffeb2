package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/models"
)

// Profile field names subject to edit control.
const (
	FieldOwner     = "user_id"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldAddress   = "address"
	FieldPhone     = "phone"
	FieldLocation  = "location"
	FieldPhoto     = "photo"
	FieldExpertise = "expertise"
)

// profileFields enumerates every editable profile field, owner link included.
var profileFields = []string{
	FieldOwner,
	FieldFirstName,
	FieldLastName,
	FieldAddress,
	FieldPhone,
	FieldLocation,
	FieldPhoto,
	FieldExpertise,
}

// Predicate answers which profiles a requester may see and which fields they
// may edit. It is a pure filter over existing state: superusers see every
// profile, everyone else only their own.
type Predicate struct {
	db *gorm.DB
}

// NewPredicate constructs a Predicate backed by the provided database.
func NewPredicate(db *gorm.DB) (*Predicate, error) {
	if db == nil {
		return nil, errors.New("authz: db is required")
	}
	return &Predicate{db: db}, nil
}

// ProfileScope returns a gorm scope restricting profile queries to what the
// requester may view.
func ProfileScope(requester *models.User) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if requester != nil && requester.IsSuperuser {
			return tx
		}
		if requester == nil {
			return tx.Where("1 = 0")
		}
		return tx.Where("user_id = ?", requester.ID)
	}
}

// VisibleProfiles returns the profiles the requester may view or edit.
// An empty result is valid: an administrator account may own no profile.
func (p *Predicate) VisibleProfiles(ctx context.Context, requester *models.User) ([]models.Profile, error) {
	ctx = ensureContext(ctx)
	if requester == nil {
		return nil, errors.New("authz: requester is required")
	}

	var profiles []models.Profile
	err := p.db.WithContext(ctx).
		Scopes(ProfileScope(requester)).
		Preload("User").
		Preload("Expertise", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		Order("created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("authz: list visible profiles: %w", err)
	}
	return profiles, nil
}

// CanViewProfile reports whether the requester may access the given profile.
func (p *Predicate) CanViewProfile(ctx context.Context, requester *models.User, profileID string) (bool, error) {
	ctx = ensureContext(ctx)
	if requester == nil || strings.TrimSpace(profileID) == "" {
		return false, nil
	}

	var count int64
	err := p.db.WithContext(ctx).
		Model(&models.Profile{}).
		Scopes(ProfileScope(requester)).
		Where("id = ?", profileID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("authz: check profile visibility: %w", err)
	}
	return count > 0, nil
}

// EditableFields returns the set of profile fields the requester may modify.
// The owning-user link is read-only for everyone but superusers.
func EditableFields(requester *models.User) map[string]struct{} {
	fields := make(map[string]struct{}, len(profileFields))
	for _, field := range profileFields {
		fields[field] = struct{}{}
	}
	if requester == nil || !requester.IsSuperuser {
		delete(fields, FieldOwner)
	}
	return fields
}

// CanReassignOwner reports whether the requester may change a profile's owning user.
func CanReassignOwner(requester *models.User) bool {
	_, ok := EditableFields(requester)[FieldOwner]
	return ok
}

// HasPermission reports whether the user holds the named permission.
// Superusers pass every check.
func (p *Predicate) HasPermission(ctx context.Context, userID, permissionID string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, errors.New("authz: user id is required")
	}
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("authz: permission id is required")
	}

	var user models.User
	if err := p.db.WithContext(ctx).
		Preload("Permissions").
		First(&user, "id = ?", userID).Error; err != nil {
		return false, fmt.Errorf("authz: load user: %w", err)
	}

	if user.IsSuperuser {
		return true, nil
	}

	for _, perm := range user.Permissions {
		if perm.ID == permissionID {
			return true, nil
		}
	}
	return false, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
