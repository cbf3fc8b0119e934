package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated user.
const ContextUserKey = "currentUser"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(token string) (*models.User, error)
}

var errNotAuthenticated = &appErrors.Error{
	Code:    appErrors.ErrUnauthorized.Code,
	Status:  appErrors.ErrUnauthorized.Status,
	Message: appErrors.ErrUnauthorized.Message,
	Detail:  "Not authenticated",
}

// JWT protects routes by requiring a valid access token.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errNotAuthenticated)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errNotAuthenticated)
			c.Abort()
			return
		}

		user, err := auth.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by JWT, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
