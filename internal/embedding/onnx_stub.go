//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("onnx backend requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXBackend stub type when built without CGO (see onnx.go for real implementation).
type ONNXBackend struct{}

// NewONNXBackend returns an error when built without CGO.
func NewONNXBackend(_ string, _, _ int) (*ONNXBackend, error) {
	return nil, errONNXUnavailable
}

// Embed is not implemented without CGO.
func (b *ONNXBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errONNXUnavailable
}

// EmbedBatch is not implemented without CGO.
func (b *ONNXBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errONNXUnavailable
}

// Dimensions returns 0 without CGO.
func (b *ONNXBackend) Dimensions() int {
	return 0
}

// Close is a no-op without CGO.
func (b *ONNXBackend) Close() error {
	return nil
}
