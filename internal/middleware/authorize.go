package middleware

import (
	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/models"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			AbortWithError(c, apperr.Unauthenticated("Not authenticated"))
			return
		}

		if _, ok := roleSet[principal.User.Role]; !ok {
			AbortWithError(c, apperr.Forbidden("Admin access required"))
			return
		}

		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.UserRoleAdmin)
}

// RequirePasswordRotated blocks users still holding a temporary password.
// Routes that let them rotate it must be registered outside this middleware.
func RequirePasswordRotated() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			AbortWithError(c, apperr.Unauthenticated("Not authenticated"))
			return
		}
		if principal.User.MustChangePassword {
			AbortWithError(c, apperr.PasswordChangeRequired("You must change your temporary password before continuing"))
			return
		}
		c.Next()
	}
}
