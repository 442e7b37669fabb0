// Package retrieval answers text queries: embed the query, then search the vector store.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/vector"
	"go.uber.org/zap"
)

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher ranks stored documents against a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int, filters vector.Filters) ([]*models.Document, error)
}

// Retriever runs text queries against the vector store.
type Retriever struct {
	embedder       QueryEmbedder
	store          Searcher
	minScore       float64
	keepEmbeddings bool
	logger         *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithMinScore drops results scoring below min.
func WithMinScore(min float64) Option {
	return func(r *Retriever) { r.minScore = min }
}

// WithEmbeddings keeps result embeddings in responses; they are stripped by default.
func WithEmbeddings(keep bool) Option {
	return func(r *Retriever) { r.keepEmbeddings = keep }
}

// WithLogger sets a logger for query timing.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder QueryEmbedder, store Searcher, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, store: store}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Search validates q (applying the default and maximum limit) and retrieves.
func (r *Retriever) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, q.Query, q.Limit, q.Filters)
}

// Retrieve embeds query and returns up to topK matching documents, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) (*models.SearchResponse, error) {
	start := time.Now()
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := r.store.Search(ctx, vec, topK, vector.Filters(filters))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := docs[:0]
	for _, d := range docs {
		if r.minScore > 0 && d.Score() < r.minScore {
			continue
		}
		if !r.keepEmbeddings {
			d.Embedding = nil
		}
		results = append(results, d)
	}
	resp := &models.SearchResponse{
		Query:     query,
		Filters:   filters,
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
	}
	r.logger.Debug("retrieved",
		zap.String("query", query),
		zap.Int("results", resp.Total),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}
