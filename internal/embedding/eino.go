package embedding

import (
	"context"
	"errors"
	"fmt"

	arkEmbed "github.com/cloudwego/eino-ext/components/embedding/ark"
	einoembed "github.com/cloudwego/eino/components/embedding"
)

// EinoBackend adapts any Eino embedding component to Backend.
type EinoBackend struct {
	embedder einoembed.Embedder
	dim      int
}

// NewEinoBackend wraps embedder. dim is the vector size the component produces.
func NewEinoBackend(embedder einoembed.Embedder, dim int) *EinoBackend {
	return &EinoBackend{embedder: embedder, dim: dim}
}

// NewArkBackend builds an EinoBackend over the Volcengine Ark embedding API.
func NewArkBackend(ctx context.Context, apiKey, baseURL, model string, dim int) (*EinoBackend, error) {
	if apiKey == "" || model == "" {
		return nil, errors.New("ark embedding: api key and model are required")
	}
	em, err := arkEmbed.NewEmbedder(ctx, &arkEmbed.EmbeddingConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("ark embedding: %w", err)
	}
	return NewEinoBackend(em, dim), nil
}

// Embed generates an embedding for a single text.
func (e *EinoBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch calls EmbedStrings and narrows the float64 output to float32.
func (e *EinoBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	raw, err := e.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("eino embedder returned %d vectors for %d inputs", len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v64 := range raw {
		v := make([]float32, len(v64))
		for j := range v64 {
			v[j] = float32(v64[j])
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the configured dimension.
func (e *EinoBackend) Dimensions() int {
	return e.dim
}

// Close is a no-op; Eino components do not expose a close hook.
func (e *EinoBackend) Close() error {
	return nil
}
