package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caseflow-api/internal/middleware"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/service"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// claimsFromContext extracts the authenticated worker claims set by the JWT
// middleware.
func claimsFromContext(c *gin.Context) (*models.WorkerClaims, error) {
	value, ok := c.Get(middleware.ContextWorkerKey)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	claims, ok := value.(*models.WorkerClaims)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// runIdempotent executes a mutating operation under the idempotency ledger.
// fn returns the status and payload of the first execution; retries with the
// same Idempotency-Key get the recorded envelope byte for byte.
func runIdempotent(c *gin.Context, idem *service.IdempotencyService, fn func(ctx context.Context) (int, interface{}, error)) {
	key := c.GetHeader("Idempotency-Key")
	scope := c.Request.Method + " " + c.Request.URL.Path

	stored, replayed, err := idem.Execute(c.Request.Context(), scope, key, func(ctx context.Context) (int, []byte, error) {
		status, data, err := fn(ctx)
		if err != nil {
			return 0, nil, err
		}
		body, err := json.Marshal(response.Envelope{Data: data})
		if err != nil {
			return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode response")
		}
		return status, body, nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	c.Header("Cache-Control", "no-store")
	c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
}
