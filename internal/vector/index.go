// Package vector provides the vector store: an append-only document arena
// paired with a similarity index, metadata filtering and snapshot persistence.
package vector

// IndexType names an index strategy. It is persisted in snapshot metadata.
type IndexType string

const (
	// IndexTypeFlat is exact brute-force inner product search.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS IndexFlatIP. Requires -tags=faiss and the FAISS C library.
	IndexTypeFAISS IndexType = "faiss"
)

// Hit is a single index search result. Position is the insertion order of the
// vector, which is also its position in the store's document arena.
type Hit struct {
	Position int
	Score    float64
}

// Index is a positional similarity index over L2-normalized vectors.
// Vectors are addressed by insertion order; there is no removal.
type Index interface {
	// Add appends vectors. Either all are added or none are.
	Add(vectors [][]float32) error
	// Search returns up to k hits by descending inner product, ties broken by
	// ascending position.
	Search(query []float32, k int) ([]Hit, error)
	Reset() error
	Size() int
	Dimension() int
	Type() IndexType
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
	Close() error
}
