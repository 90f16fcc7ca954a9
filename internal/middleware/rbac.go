package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/raihanm-dev/auth-service/internal/models"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
	"github.com/raihanm-dev/auth-service/pkg/response"
)

// RequireRoles restricts a route to callers whose token carries at least one
// of the given roles. Must run after JWT.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.TokenClaims)

		for _, role := range claims.Roles {
			if _, ok := allowed[role]; ok {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
