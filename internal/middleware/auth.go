package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/service/auth"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/httputil"
)

const ContextUser = "current_user"

type AuthMiddleware struct {
	authService auth.Servicer
}

func NewAuthMiddleware(authService auth.Servicer) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate resolves the bearer token to an active user and stores it in
// context. The paid flag on the user reflects the organization's current
// subscription at this moment.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperrors.Unauthorized("missing authorization header", nil))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, apperrors.Unauthorized("invalid authorization format", nil))
			return
		}

		user, err := m.authService.CurrentUser(c.Request.Context(), parts[1])
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireAdmin allows only organization admins past.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			abort(c, apperrors.Forbidden("admin access required", nil))
			return
		}
		c.Next()
	}
}

// RequirePaidAdmin allows only admins whose organization is on a paid plan.
func (m *AuthMiddleware) RequirePaidAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			abort(c, apperrors.Forbidden("admin access required", nil))
			return
		}
		if !user.IsPaid {
			abort(c, apperrors.Forbidden("paid subscription required", nil))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Authenticate, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}

func abort(c *gin.Context, err error) {
	httputil.RespondWithError(c, err)
	c.Abort()
}
