package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/eximrag/internal/observability"
	"github.com/hyperjump/eximrag/pkg/utils"
	"go.uber.org/zap"
)

// Service defaults.
const (
	DefaultBatchSize = 32
	DefaultCacheSize = 1000
)

// CacheInfo reports the state of the query cache.
type CacheInfo struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
}

// Service converts text to L2-normalized vectors of a fixed dimension.
// Single-text queries go through an LRU cache; document batches do not.
type Service struct {
	backend   Backend
	dimension int
	batchSize int
	cacheSize int
	cache     *EmbeddingCache
	logger    *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDimension sets the expected output dimension. When unset the backend's
// native dimension is used.
func WithDimension(d int) ServiceOption {
	return func(s *Service) { s.dimension = d }
}

// WithBatchSize sets how many texts are sent to the backend per batch call.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) { s.batchSize = n }
}

// WithCacheSize sets the query cache capacity.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) { s.cacheSize = n }
}

// WithLogger sets a logger for backend failures and cache events.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService wraps backend with caching, batching and normalization.
func NewService(backend Backend, opts ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("embedding backend is required")
	}
	s := &Service{
		backend:   backend,
		batchSize: DefaultBatchSize,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	native := backend.Dimensions()
	switch {
	case s.dimension <= 0 && native <= 0:
		return nil, errors.New("embedding dimension is unknown: set it explicitly")
	case s.dimension <= 0:
		s.dimension = native
	case native > 0 && native != s.dimension:
		return nil, fmt.Errorf("configured dimension %d does not match backend dimension %d", s.dimension, native)
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	s.cache = NewEmbeddingCache(s.cacheSize)
	return s, nil
}

// EmbedQuery returns the normalized embedding for text. Blank text yields the
// zero vector without calling the backend or touching the cache. Results are
// cached by trimmed text, so repeated calls return identical vectors.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return make([]float32, s.dimension), nil
	}
	if cached, ok := s.cache.Get(key); ok {
		observability.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return copyVector(cached), nil
	}
	observability.CacheRequestsTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	raw, err := s.backend.Embed(ctx, key)
	s.observe("embed", start, err)
	if err != nil {
		s.logger.Warn("embedding backend failed", zap.String("operation", "embed"), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if len(raw) != s.dimension {
		return nil, fmt.Errorf("%w: backend returned %d dimensions, expected %d", ErrBackendUnavailable, len(raw), s.dimension)
	}
	vec := utils.NormalizedCopy(raw)
	s.cache.Set(key, vec)
	observability.CacheEntries.Set(float64(s.cache.Len()))
	return copyVector(vec), nil
}

// EmbedDocuments embeds texts in order using the configured batch size.
// Blank entries get the zero vector. The query cache is not used.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedDocuments(ctx, texts, s.batchSize)
}

// EmbedBatch behaves like EmbedDocuments but uses batchSize for this call
// only. A batchSize of zero or less falls back to the configured size.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	return s.embedDocuments(ctx, texts, batchSize)
}

func (s *Service) embedDocuments(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	positions := make([]int, 0, len(texts))
	pending := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, s.dimension)
			continue
		}
		positions = append(positions, i)
		pending = append(pending, text)
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		began := time.Now()
		vecs, err := s.backend.EmbedBatch(ctx, pending[start:end])
		s.observe("embed_batch", began, err)
		if err != nil {
			s.logger.Warn("embedding backend failed",
				zap.String("operation", "embed_batch"),
				zap.Int("batch_size", end-start),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: backend returned %d vectors for %d texts", ErrBackendUnavailable, len(vecs), end-start)
		}
		for j, v := range vecs {
			if len(v) != s.dimension {
				return nil, fmt.Errorf("%w: backend returned %d dimensions, expected %d", ErrBackendUnavailable, len(v), s.dimension)
			}
			out[positions[start+j]] = utils.NormalizedCopy(v)
		}
	}
	return out, nil
}

// Dimension returns the backend's native output size, or the configured
// dimension when the backend does not report one.
func (s *Service) Dimension() int {
	if d := s.backend.Dimensions(); d > 0 {
		return d
	}
	return s.dimension
}

// BatchSize returns the configured batch size.
func (s *Service) BatchSize() int {
	return s.batchSize
}

// ClearCache empties the query cache and resets its counters.
func (s *Service) ClearCache() {
	s.cache.Clear()
	observability.CacheEntries.Set(0)
}

// CacheInfo returns hit/miss counters and occupancy of the query cache.
func (s *Service) CacheInfo() CacheInfo {
	return CacheInfo{
		Hits:     s.cache.Hits(),
		Misses:   s.cache.Misses(),
		Size:     s.cache.Len(),
		Capacity: s.cache.Capacity(),
	}
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}

func (s *Service) observe(operation string, start time.Time, err error) {
	observability.BackendRequestsTotal.WithLabelValues(operation, observability.StatusLabel(err)).Inc()
	observability.BackendLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
