//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "fmt"

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

func faissUnavailable() error {
	return fmt.Errorf("%w: faiss (build with -tags=faiss and install the FAISS library)", ErrIndexUnavailable)
}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, faissUnavailable()
}

// Add is not implemented without FAISS.
func (f *FAISSIndex) Add(vectors [][]float32) error { return faissUnavailable() }

// Search is not implemented without FAISS.
func (f *FAISSIndex) Search(query []float32, k int) ([]Hit, error) { return nil, faissUnavailable() }

// Reset is not implemented without FAISS.
func (f *FAISSIndex) Reset() error { return faissUnavailable() }

// Size returns 0 without FAISS.
func (f *FAISSIndex) Size() int { return 0 }

// Dimension returns 0 without FAISS.
func (f *FAISSIndex) Dimension() int { return 0 }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() IndexType { return IndexTypeFAISS }

// MarshalBinary is not implemented without FAISS.
func (f *FAISSIndex) MarshalBinary() ([]byte, error) { return nil, faissUnavailable() }

// UnmarshalBinary is not implemented without FAISS.
func (f *FAISSIndex) UnmarshalBinary(data []byte) error { return faissUnavailable() }

// Close is a no-op without FAISS.
func (f *FAISSIndex) Close() error { return nil }
