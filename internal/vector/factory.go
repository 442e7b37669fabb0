package vector

import (
	"fmt"
	"strings"
)

// ParseIndexType normalizes a configured index type. Empty and the legacy
// "memory" name map to IndexTypeFlat.
func ParseIndexType(s string) (IndexType, error) {
	switch t := IndexType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", "memory", IndexTypeFlat:
		return IndexTypeFlat, nil
	case IndexTypeFAISS:
		return IndexTypeFAISS, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: flat, faiss)", ErrUnknownIndexType, s)
	}
}

// NewIndex creates an index of the given type.
// FAISS requires building with -tags=faiss and having the FAISS library installed.
func NewIndex(indexType IndexType, dimensions int) (Index, error) {
	t, err := ParseIndexType(string(indexType))
	if err != nil {
		return nil, err
	}
	switch t {
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		idx, err := NewFlatIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
