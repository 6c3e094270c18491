package api

import (
	"net/http"
	"strconv"
)

// paginationMeta holds pagination metadata for API responses.
type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// parsePaginationParams parses pagination parameters from an HTTP request.
// Supports offset-based pagination (?offset=20&limit=10).
func parsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// paginate cuts one page out of a list the backend sends whole.
func paginate[T any](all []T, limit, offset int) ([]T, paginationMeta) {
	meta := paginationMeta{Limit: limit, Offset: offset, Total: len(all)}
	if offset >= len(all) {
		return []T{}, meta
	}

	end := min(offset+limit, len(all))
	return all[offset:end], meta
}
