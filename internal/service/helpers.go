package service

import (
	"time"

	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

// validateCursor rejects malformed cursor tokens before they reach a query,
// so a bad cursor is a 400 rather than a silent reset to the first page.
func validateCursor(cursor string) error {
	if cursor == "" {
		return nil
	}
	if _, _, err := models.DecodeCursor(cursor); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pagination cursor")
	}
	return nil
}

// clampLimit applies the default and upper bound for page sizes.
func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// buildPagination derives keyset pagination metadata from a fetched page.
// keyAt returns the sort key (created_at, id) of the i-th row.
func buildPagination(total, limit, fetched int, keyAt func(i int) (time.Time, string)) *models.CursorPagination {
	pagination := &models.CursorPagination{TotalCount: total}
	if fetched == 0 {
		return pagination
	}
	if fetched == limit {
		createdAt, id := keyAt(fetched - 1)
		cursor := models.EncodeCursor(createdAt, id)
		pagination.NextCursor = &cursor
		pagination.HasMore = true
	}
	return pagination
}
