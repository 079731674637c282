package handler

import (
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/pkg/apperror"

	"github.com/google/uuid"
)

// Request headers understood by the money-moving endpoints.
const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderOBIdempotencyKey   = "x-idempotency-key"
	HeaderAuthorizationToken = "X-Authorization-Token"
)

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.Validation(field + " must be a UUID")
	}
	return id, nil
}

func parseAmount(s string) (domain.Money, error) {
	m, err := domain.ParseMoney(s)
	if err != nil {
		return 0, apperror.Validation(err.Error())
	}
	if !m.IsPositive() {
		return 0, apperror.ErrInvalidAmount()
	}
	return m, nil
}

func parseDate(field, s string) (time.Time, error) {
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, apperror.Validation(field + " must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
