package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Snapshot blob header for FlatIndex.
const (
	flatMagic   = "EXVI"
	flatVersion = uint16(1)
	// magic + version + dimension + count
	flatHeaderSize = 4 + 2 + 4 + 4
)

// FlatIndex is an in-memory index using exact brute-force inner product search.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates a flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidDimension, dimensions)
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() IndexType {
	return IndexTypeFlat
}

// Dimension returns the vector dimension.
func (f *FlatIndex) Dimension() int {
	return f.dimensions
}

// Add appends copies of vectors.
func (f *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrInvalidDimension, i, len(v), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, f.dimensions)
		copy(vec, v)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the top-k positions by inner product.
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrInvalidDimension, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(f.vectors))
	for i, vec := range f.vectors {
		hits[i] = Hit{Position: i, Score: InnerProduct(query, vec)}
	}
	sortHits(hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Reset drops every vector.
func (f *FlatIndex) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = make([][]float32, 0)
	return nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

// MarshalBinary encodes the index as: magic "EXVI", version (2), dimension (4),
// count (4), then count*dimension little-endian float32 values.
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var buf bytes.Buffer
	buf.Grow(flatHeaderSize + len(f.vectors)*f.dimensions*4)
	buf.WriteString(flatMagic)
	_ = binary.Write(&buf, binary.LittleEndian, flatVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.dimensions))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(f.vectors)))
	for _, v := range f.vectors {
		buf.Write(float32SliceToBytes(v))
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the contents of the index with the encoded vectors.
// The encoded dimension must match the index dimension.
func (f *FlatIndex) UnmarshalBinary(data []byte) error {
	if len(data) < flatHeaderSize || string(data[:4]) != flatMagic {
		return fmt.Errorf("%w: not a flat index blob", ErrCorruptSnapshot)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != flatVersion {
		return fmt.Errorf("%w: unsupported flat index version %d", ErrCorruptSnapshot, v)
	}
	dim := int(binary.LittleEndian.Uint32(data[6:10]))
	n := int(binary.LittleEndian.Uint32(data[10:14]))
	if dim != f.dimensions {
		return fmt.Errorf("%w: blob has dimension %d, index expects %d", ErrCorruptSnapshot, dim, f.dimensions)
	}
	body := data[flatHeaderSize:]
	if len(body) != n*dim*4 {
		return fmt.Errorf("%w: blob holds %d bytes, expected %d", ErrCorruptSnapshot, len(body), n*dim*4)
	}
	vectors := make([][]float32, n)
	stride := dim * 4
	for i := 0; i < n; i++ {
		vectors[i] = bytesToFloat32Slice(body[i*stride : (i+1)*stride])
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = vectors
	return nil
}

// sortHits orders hits by descending score, then ascending position.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
