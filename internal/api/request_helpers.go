package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// getPathUUID extracts and parses a UUID path parameter
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", ErrInvalidID, paramName)
	}
	return id, nil
}

// limitQuery is the optional ?limit= parameter of list endpoints
type limitQuery struct {
	Limit int `validate:"gte=1,lte=1000"`
}

// getLimit reads ?limit=, falling back to def when absent
func getLimit(r *http.Request, def int) (limitQuery, error) {
	q := limitQuery{Limit: def}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit must be an integer: %w", err)
		}
		q.Limit = n
	}
	return q, nil
}
