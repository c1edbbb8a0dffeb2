package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/models"
)

// AuthEvent captures a single authentication event to persist.
type AuthEvent struct {
	IPAddress string
	Email     string
	Metadata  map[string]any
}

// AuditFilters encapsulates optional filters when querying the audit log.
type AuditFilters struct {
	Action string
	Email  string
	Since  *time.Time
	Until  *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService appends and retrieves authentication audit entries. Entries are
// written exactly once per event and never mutated or reconciled afterwards.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// LoginSucceeded appends a user_logged_in entry for the authenticated user.
func (s *AuditService) LoginSucceeded(ctx context.Context, event AuthEvent) error {
	return s.append(ctx, models.AuditActionLoggedIn, event)
}

// LoginFailed appends a user_login_failed entry. The email is whatever the
// client submitted and may match no user at all.
func (s *AuditService) LoginFailed(ctx context.Context, event AuthEvent) error {
	return s.append(ctx, models.AuditActionLoginFailed, event)
}

// LoggedOut appends a user_logged_out entry for the user ending their session.
func (s *AuditService) LoggedOut(ctx context.Context, event AuthEvent) error {
	return s.append(ctx, models.AuditActionLoggedOut, event)
}

func (s *AuditService) append(ctx context.Context, action string, event AuthEvent) error {
	ctx = ensureContext(ctx)

	entry := models.AuditLog{
		Action:    action,
		IPAddress: strings.TrimSpace(event.IPAddress),
		Email:     strings.TrimSpace(event.Email),
	}

	if event.Metadata != nil {
		payload, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(payload)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit service: append entry: %w", err)
	}
	return nil
}

// List returns paginated audit entries ordered newest-first.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count entries: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list entries: %w", err)
	}

	return results, total, nil
}

// Latest returns the most recent audit entry, or gorm.ErrRecordNotFound.
func (s *AuditService) Latest(ctx context.Context) (*models.AuditLog, error) {
	ctx = ensureContext(ctx)

	var entry models.AuditLog
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		First(&entry).Error; err != nil {
		return nil, fmt.Errorf("audit service: latest entry: %w", err)
	}
	return &entry, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Email != "" {
		query = query.Where("email = ?", filters.Email)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
