package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/models"
	apperrors "github.com/bistiadi/portfolio/pkg/errors"
)

var (
	// ErrExpertiseNotFound indicates the requested expertise label does not exist.
	ErrExpertiseNotFound = apperrors.New("EXPERTISE_NOT_FOUND", "Expertise not found", http.StatusNotFound)
	// ErrExpertiseExists indicates the label is already in the catalog.
	ErrExpertiseExists = apperrors.New("EXPERTISE_EXISTS", "Expertise already exists", http.StatusConflict)
)

const expertiseNameLimit = 15

// ExpertiseService manages the shared expertise catalog.
type ExpertiseService struct {
	db *gorm.DB
}

// NewExpertiseService constructs an ExpertiseService instance.
func NewExpertiseService(db *gorm.DB) (*ExpertiseService, error) {
	if db == nil {
		return nil, errors.New("expertise service: db is required")
	}
	return &ExpertiseService{db: db}, nil
}

// List returns the full catalog in alphabetical order.
func (s *ExpertiseService) List(ctx context.Context) ([]models.Expertise, error) {
	ctx = ensureContext(ctx)

	var items []models.Expertise
	if err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("expertise service: list: %w", err)
	}
	return items, nil
}

// Get loads a single catalog entry by identifier.
func (s *ExpertiseService) Get(ctx context.Context, id string) (*models.Expertise, error) {
	ctx = ensureContext(ctx)

	var item models.Expertise
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExpertiseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("expertise service: get: %w", err)
	}
	return &item, nil
}

// Create adds a new label to the catalog.
func (s *ExpertiseService) Create(ctx context.Context, name string) (*models.Expertise, error) {
	ctx = ensureContext(ctx)

	name, err := normalizeExpertiseName(name)
	if err != nil {
		return nil, err
	}

	item := models.Expertise{Name: name}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrExpertiseExists
		}
		return nil, fmt.Errorf("expertise service: create: %w", err)
	}
	return &item, nil
}

// Update renames an existing catalog entry.
func (s *ExpertiseService) Update(ctx context.Context, id, name string) (*models.Expertise, error) {
	ctx = ensureContext(ctx)

	name, err := normalizeExpertiseName(name)
	if err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = name
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrExpertiseExists
		}
		return nil, fmt.Errorf("expertise service: update: %w", err)
	}
	return item, nil
}

// Delete removes a catalog entry and its profile links.
func (s *ExpertiseService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Association("Profiles").Clear(); err != nil {
			return fmt.Errorf("expertise service: unlink profiles: %w", err)
		}
		if err := tx.Delete(item).Error; err != nil {
			return fmt.Errorf("expertise service: delete: %w", err)
		}
		return nil
	})
}

func normalizeExpertiseName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewBadRequest("expertise name is required")
	}
	if len(name) > expertiseNameLimit {
		return "", apperrors.NewBadRequest("expertise name is too long")
	}
	return name, nil
}
