package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bistiadi/portfolio/internal/services"
	apperrors "github.com/bistiadi/portfolio/pkg/errors"
	"github.com/bistiadi/portfolio/pkg/response"
)

// AuditHandler exposes the read-only authentication audit log to superusers.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
//
// Entries are returned newest-first. Supported query parameters: action,
// email, since, until (RFC 3339), page and per_page.
func (h *AuditHandler) List(c *gin.Context) {
	filters := services.AuditFilters{
		Action: strings.TrimSpace(c.Query("action")),
		Email:  strings.TrimSpace(c.Query("email")),
	}

	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Since = &ts
		}
	}
	if raw := strings.TrimSpace(c.Query("until")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Until = &ts
		}
	}

	page := parseIntQuery(c, "page", 1)
	if page <= 0 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", 50)
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	entries, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// GET /api/audit/latest
//
// Returns the most recent audit entry, 404 when the log is empty.
func (h *AuditHandler) Latest(c *gin.Context) {
	entry, err := h.audit.Latest(requestContext(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}
