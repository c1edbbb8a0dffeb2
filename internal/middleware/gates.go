package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bistiadi/portfolio/internal/authz"
	"github.com/bistiadi/portfolio/pkg/errors"
	"github.com/bistiadi/portfolio/pkg/response"
)

// RequireStaff admits only staff accounts. Must run after LoadUser.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.IsStaff && !user.IsSuperuser {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperuser admits only superuser accounts. Must run after LoadUser.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.IsSuperuser {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission checks that the authenticated user holds the named
// permission. Superusers always pass. Must run after Auth.
func RequirePermission(predicate *authz.Predicate, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		allowed, err := predicate.HasPermission(c.Request.Context(), userID, permissionID)
		if err != nil {
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
