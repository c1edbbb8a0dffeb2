package database

import (
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.Profile{},
		&models.Expertise{},
		&models.Session{},
		&models.AuditLog{},
	)
}

// defaultExpertise is the starting catalog; administrators extend it later.
var defaultExpertise = []string{
	"Go",
	"Python",
	"Django",
	"HTML",
	"PostgreSQL",
	"JavaScript",
}

// SeedData populates the permission catalog and the initial expertise labels.
// The profile.change permission must exist before the first signup: user
// creation fails when it is missing.
func SeedData(db *gorm.DB) error {
	perm := models.Permission{
		ID:   models.PermissionChangeProfile,
		Name: "Can change profile",
	}
	if err := db.Where(models.Permission{ID: perm.ID}).
		Attrs(perm).
		FirstOrCreate(&models.Permission{}).Error; err != nil {
		return err
	}

	for _, name := range defaultExpertise {
		if err := db.Where(models.Expertise{Name: name}).
			FirstOrCreate(&models.Expertise{}).Error; err != nil {
			return err
		}
	}

	return nil
}
