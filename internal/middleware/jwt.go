package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// ContextWorkerKey stores the authenticated worker claims on the gin context.
const ContextWorkerKey = "worker_claims"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.WorkerClaims, error)
}

// JWT authenticates requests with a Bearer token and attaches the worker
// claims to the context.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextWorkerKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated worker lacks the role.
func RequireRole(role models.WorkerRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get(ContextWorkerKey)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.WorkerClaims)
		if !ok || claims.Role != role {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "operator role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
