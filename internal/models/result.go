package models

// SearchResponse is the response for a retrieval request.
// Results are ordered by descending relevance score.
type SearchResponse struct {
	Query     string                 `json:"query"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
	Results   []*Document            `json:"results"`
	Total     int                    `json:"total"`
	QueryTime int64                  `json:"query_time_ms"`
}
