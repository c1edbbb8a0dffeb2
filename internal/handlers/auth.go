package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/bistiadi/portfolio/internal/auth"
	"github.com/bistiadi/portfolio/internal/auth/providers"
	"github.com/bistiadi/portfolio/internal/middleware"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/internal/services"
	"github.com/bistiadi/portfolio/pkg/errors"
	"github.com/bistiadi/portfolio/pkg/logger"
	"github.com/bistiadi/portfolio/pkg/metrics"
	"github.com/bistiadi/portfolio/pkg/response"
)

// AuthHandler manages account registration and authentication flows. Every
// login outcome and logout is recorded in the audit log with the client IP
// and the email the client submitted.
type AuthHandler struct {
	users    *services.UserService
	audit    *services.AuditService
	provider *providers.LocalProvider
	sessions *iauth.SessionService
}

func NewAuthHandler(users *services.UserService, audit *services.AuditService, provider *providers.LocalProvider, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{users: users, audit: audit, provider: provider, sessions: sessions}
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=20"`
	LastName  string `json:"last_name" validate:"max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuperuser,
		"is_active":    user.IsActive,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, userPayload(user))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	user, err := h.provider.Authenticate(providers.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.recordAudit(c, h.audit.LoginFailed, req.Email)
		// Normalise auth errors to 401
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	pair, _, err := h.sessions.CreateSession(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.recordAudit(c, h.audit.LoginSucceeded, user.Email)

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userPayload(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	sid, _ := v.(string)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	email := ""
	if user, ok := middleware.CurrentUser(c); ok {
		email = user.Email
	}
	h.recordAudit(c, h.audit.LoggedOut, email)

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user))
}

// recordAudit appends an audit entry without affecting the request outcome.
func (h *AuthHandler) recordAudit(c *gin.Context, record func(ctx context.Context, event services.AuthEvent) error, email string) {
	if err := record(requestContext(c), services.AuthEvent{
		IPAddress: c.ClientIP(),
		Email:     email,
	}); err != nil {
		logger.WithModule("auth").Warn("audit append failed", zap.Error(err))
	}
}
