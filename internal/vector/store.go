package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/observability"
	"github.com/hyperjump/eximrag/internal/remote"
	"github.com/hyperjump/eximrag/pkg/utils"
	"go.uber.org/zap"
)

// DefaultOversampleFactor is the candidate multiplier for filtered search.
const DefaultOversampleFactor = 10

// Skip reasons reported in AddResult.
const (
	ReasonNilDocument       = "nil_document"
	ReasonMissingEmbedding  = "missing_embedding"
	ReasonDimensionMismatch = "dimension_mismatch"
	ReasonNonFinite         = "non_finite_embedding"
	ReasonInvalidMetadata   = "invalid_metadata"
)

// Skipped describes a document rejected by Add.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// AddResult is the per-call outcome of Add.
type AddResult struct {
	Accepted int       `json:"accepted"`
	Skipped  []Skipped `json:"skipped,omitempty"`
}

// Stats summarizes the store.
type Stats struct {
	TotalDocuments           int       `json:"total_documents"`
	EmbeddingDimension       int       `json:"embedding_dimension"`
	IndexType                IndexType `json:"index_type"`
	IndexSize                int       `json:"index_size"`
	RemotePersistenceEnabled bool      `json:"remote_persistence_enabled"`
}

// Store is the vector store: documents are kept in an append-only arena whose
// positions match the index positions, so documents[i], documentIDs[i] and
// index vector i always describe the same entry. IDs are not unique.
//
// Searches run concurrently under a read lock. Add, RebuildIndex and Load take
// the write lock. Save and Load are additionally serialized with each other.
//
// Add and RebuildIndex initialize the store on first use, so calling
// Initialize explicitly is optional. Search on an uninitialized store returns
// no results.
type Store struct {
	dimension  int
	indexType  IndexType
	index      Index
	documents  []*models.Document
	docIDs     []string
	oversample int
	remote     remote.ObjectStore
	logger     *zap.Logger

	mu        sync.RWMutex
	persistMu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIndexType selects the index strategy (default flat).
func WithIndexType(t IndexType) StoreOption {
	return func(s *Store) { s.indexType = t }
}

// WithLogger sets a logger for skipped documents and persistence events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithRemote enables best-effort snapshot upload on Save and download on Load.
func WithRemote(r remote.ObjectStore) StoreOption {
	return func(s *Store) { s.remote = r }
}

// WithOversampleFactor sets the filtered-search candidate multiplier.
func WithOversampleFactor(n int) StoreOption {
	return func(s *Store) { s.oversample = n }
}

// NewStore creates an uninitialized store for vectors of the given dimension.
func NewStore(dimension int, opts ...StoreOption) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidDimension, dimension)
	}
	s := &Store{
		dimension:  dimension,
		indexType:  IndexTypeFlat,
		oversample: DefaultOversampleFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	t, err := ParseIndexType(string(s.indexType))
	if err != nil {
		return nil, err
	}
	s.indexType = t
	if s.oversample < 1 {
		s.oversample = DefaultOversampleFactor
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Initialize creates the empty index. It is a no-op when already initialized.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

func (s *Store) initLocked() error {
	if s.index != nil {
		return nil
	}
	idx, err := NewIndex(s.indexType, s.dimension)
	if err != nil {
		return fmt.Errorf("initialize %s index: %w", s.indexType, err)
	}
	s.index = idx
	s.documents = make([]*models.Document, 0)
	s.docIDs = make([]string, 0)
	return nil
}

// Add stores every document whose embedding has the store's dimension. Other
// documents are skipped, logged and reported in the result; they never abort
// the batch. Stored documents are copies carrying the L2-normalized embedding;
// the caller's documents are not modified.
func (s *Store) Add(ctx context.Context, docs []*models.Document) (*AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return nil, err
	}

	accepted, vectors, result := s.prepare(docs)
	if err := s.index.Add(vectors); err != nil {
		return nil, fmt.Errorf("add to index: %w", err)
	}
	for _, doc := range accepted {
		s.documents = append(s.documents, doc)
		s.docIDs = append(s.docIDs, doc.ID)
	}
	observability.Documents.Set(float64(len(s.documents)))
	if len(result.Skipped) > 0 {
		s.logger.Warn("skipped documents on add",
			zap.Int("accepted", result.Accepted),
			zap.Int("skipped", len(result.Skipped)))
	}
	return result, nil
}

// prepare validates and normalizes docs without touching store state.
func (s *Store) prepare(docs []*models.Document) ([]*models.Document, [][]float32, *AddResult) {
	result := &AddResult{}
	accepted := make([]*models.Document, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		if skip, ok := s.validate(doc); !ok {
			result.Skipped = append(result.Skipped, skip)
			observability.AddSkippedTotal.WithLabelValues(skip.Reason).Inc()
			s.logger.Warn("skipping document",
				zap.String("id", skip.ID),
				zap.String("reason", skip.Reason),
				zap.String("detail", skip.Detail))
			continue
		}
		stored := doc.Clone()
		stored.RelevanceScore = nil
		utils.NormalizeL2(stored.Embedding)
		accepted = append(accepted, stored)
		vectors = append(vectors, stored.Embedding)
	}
	result.Accepted = len(accepted)
	return accepted, vectors, result
}

func (s *Store) validate(doc *models.Document) (Skipped, bool) {
	switch {
	case doc == nil:
		return Skipped{Reason: ReasonNilDocument}, false
	case len(doc.Embedding) == 0:
		return Skipped{ID: doc.ID, Reason: ReasonMissingEmbedding}, false
	case len(doc.Embedding) != s.dimension:
		return Skipped{
			ID:     doc.ID,
			Reason: ReasonDimensionMismatch,
			Detail: fmt.Sprintf("got %d, expected %d", len(doc.Embedding), s.dimension),
		}, false
	case !finite(doc.Embedding):
		return Skipped{ID: doc.ID, Reason: ReasonNonFinite}, false
	}
	// Metadata must survive Save; NaN, Inf and channel values do not encode.
	if len(doc.Metadata) > 0 {
		if _, err := json.Marshal(doc.Metadata); err != nil {
			return Skipped{ID: doc.ID, Reason: ReasonInvalidMetadata, Detail: err.Error()}, false
		}
	}
	return Skipped{}, true
}

// Search returns up to topK documents ranked by cosine similarity to query,
// each a copy annotated with its relevance score. A query of the wrong length
// or with NaN/Inf components fails with ErrInvalidDimension.
//
// With filters, the best min(topK*oversample, total) candidates are ranked
// first and then filtered in order. This is an approximation: for selective
// filters it can return fewer than topK matches even when more exist.
func (s *Store) Search(ctx context.Context, query []float32, topK int, filters Filters) ([]*models.Document, error) {
	start := time.Now()
	filtered := len(filters) > 0
	defer func() {
		observability.SearchDuration.WithLabelValues(strconv.FormatBool(filtered)).Observe(time.Since(start).Seconds())
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrInvalidDimension, len(query), s.dimension)
	}
	if !finite(query) {
		return nil, fmt.Errorf("%w: query has non-finite components", ErrInvalidDimension)
	}
	results := make([]*models.Document, 0)
	if topK <= 0 {
		return results, nil
	}
	q := utils.NormalizedCopy(query)
	total := len(s.documents)
	if s.index == nil || total == 0 {
		return results, nil
	}

	k := topK
	if filtered {
		k = topK * s.oversample
		if k > total || k < topK {
			k = total
		}
	}
	hits, err := s.index.Search(q, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	for _, h := range hits {
		if h.Position < 0 || h.Position >= total {
			continue
		}
		doc := s.documents[h.Position]
		if filtered && !filters.Matches(doc.Metadata) {
			continue
		}
		results = append(results, doc.WithScore(h.Score))
		if len(results) == topK {
			break
		}
	}
	return results, nil
}

// SearchByMetadata returns copies of every document matching filters, in
// insertion order. Empty filters return every document.
func (s *Store) SearchByMetadata(ctx context.Context, filters Filters) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*models.Document, 0)
	for _, doc := range s.documents {
		if filters.Matches(doc.Metadata) {
			results = append(results, doc.Clone())
		}
	}
	return results, nil
}

// RebuildIndex reconstructs the index from the stored documents' embeddings.
func (s *Store) RebuildIndex(ctx context.Context) (*AddResult, error) {
	s.mu.RLock()
	t := s.indexType
	s.mu.RUnlock()
	return s.RebuildIndexAs(ctx, t)
}

// RebuildIndexAs reconstructs the index with the given strategy by re-running
// the add pipeline over the stored documents. Documents whose embeddings are
// no longer valid are dropped and reported. On error the store is unchanged.
func (s *Store) RebuildIndexAs(ctx context.Context, indexType IndexType) (*AddResult, error) {
	t, err := ParseIndexType(string(indexType))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return nil, err
	}

	idx, err := NewIndex(t, s.dimension)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s index: %w", t, err)
	}
	accepted, vectors, result := s.prepare(s.documents)
	if err := idx.Add(vectors); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("rebuild %s index: %w", t, err)
	}
	ids := make([]string, len(accepted))
	for i, doc := range accepted {
		ids[i] = doc.ID
	}

	old := s.index
	s.index = idx
	s.indexType = t
	s.documents = accepted
	s.docIDs = ids
	_ = old.Close()

	observability.Documents.Set(float64(len(s.documents)))
	s.logger.Info("rebuilt vector index",
		zap.String("index_type", string(t)),
		zap.Int("documents", result.Accepted),
		zap.Int("dropped", len(result.Skipped)))
	return result, nil
}

// Stats returns document and index counts and configuration.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size := 0
	if s.index != nil {
		size = s.index.Size()
	}
	return Stats{
		TotalDocuments:           len(s.documents),
		EmbeddingDimension:       s.dimension,
		IndexType:                s.indexType,
		IndexSize:                size,
		RemotePersistenceEnabled: s.remote != nil,
	}
}

// Dimension returns the embedding dimension.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Close releases the index. The remote store is owned by the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	s.documents = nil
	s.docIDs = nil
	return err
}
