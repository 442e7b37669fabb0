package embedding

import (
	"context"
	"math"
)

// MockBackend is a deterministic backend for tests and offline use. It derives a
// fixed-dimension vector from the text hash so that the same text always gets
// the same embedding. Output is not normalized.
type MockBackend struct {
	dimensions int
}

// NewMockBackend returns a backend that produces deterministic embeddings of the given dimensions.
func NewMockBackend(dimensions int) *MockBackend {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockBackend{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.5 + 0.01)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockBackend) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockBackend.
func (e *MockBackend) Close() error {
	return nil
}
