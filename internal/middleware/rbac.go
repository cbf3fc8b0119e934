package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

var errNotEnoughPermissions = &appErrors.Error{
	Code:    appErrors.ErrForbidden.Code,
	Status:  appErrors.ErrForbidden.Status,
	Message: appErrors.ErrForbidden.Message,
	Detail:  "Not enough permissions",
}

// RequireRoles admits only users holding exactly one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, errNotAuthenticated)
			c.Abort()
			return
		}

		if _, ok := allowed[user.Role]; !ok {
			response.Error(c, errNotEnoughPermissions)
			c.Abort()
			return
		}

		c.Next()
	}
}
