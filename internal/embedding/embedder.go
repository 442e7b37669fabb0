// Package embedding turns text into fixed-length, L2-normalized vectors.
// It wraps a pluggable Backend with an LRU query cache and batching.
package embedding

import "context"

// Backend produces raw vector embeddings for text. Implementations need not
// normalize their output; the Service does.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
