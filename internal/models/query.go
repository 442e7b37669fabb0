package models

import (
	"fmt"
	"strings"
)

// Limits applied by SearchQuery.Validate.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// SearchQuery represents a retrieval request with optional metadata filters.
type SearchQuery struct {
	Query   string                 `json:"query"`
	Limit   int                    `json:"limit,omitempty"`
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is blank; otherwise trims it and normalizes limit.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if len(q.Filters) == 0 {
		q.Filters = nil
	}
	return nil
}
