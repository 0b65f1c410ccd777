package middleware

import (
	"strings"

	"hercules_backend/internal/auth"
	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	"hercules_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// Auth validates the bearer token and stores the caller's identity in the
// gin context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Missing bearer token"))
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(token)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Request = c.Request.WithContext(
			logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// AdminOnly restricts a route group to admin accounts. Must sit behind Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != string(models.UserRoleAdmin) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}
