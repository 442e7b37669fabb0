//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXBackend runs a local sentence-embedding model through ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXBackend struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Tensors are bound to the session once; Embed rewrites their data in place.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXBackend loads the model at modelPath. The model must accept
// input_ids, attention_mask and token_type_ids and produce a pooled "output".
func NewONNXBackend(modelPath string, dimensions, maxTokens int) (*ONNXBackend, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("onnx backend needs an explicit dimension")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	b := &ONNXBackend{
		dimensions: dimensions,
		maxTokens:  maxTokens,
		tokenizer:  &HashTokenizer{},
	}
	if err := b.allocate(); err != nil {
		b.destroyTensors()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{b.inputIDs, b.attentionMask, b.tokenTypeIDs},
		[]ort.ArbitraryTensor{b.output},
		nil,
	)
	if err != nil {
		b.destroyTensors()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	b.session = session
	return b, nil
}

func (b *ONNXBackend) allocate() error {
	ids, mask, types := b.tokenizer.Tokenize("", b.maxTokens)
	shape := ort.NewShape(1, int64(len(ids)))

	var err error
	if b.inputIDs, err = ort.NewTensor(shape, ids); err != nil {
		return fmt.Errorf("create input_ids tensor: %w", err)
	}
	if b.attentionMask, err = ort.NewTensor(shape, mask); err != nil {
		return fmt.Errorf("create attention_mask tensor: %w", err)
	}
	if b.tokenTypeIDs, err = ort.NewTensor(shape, types); err != nil {
		return fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	if b.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(b.dimensions))); err != nil {
		return fmt.Errorf("create output tensor: %w", err)
	}
	return nil
}

// Embed runs one inference. Calls are serialized because the tensors are shared.
func (b *ONNXBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, fmt.Errorf("onnx backend is closed")
	}

	ids, mask, types := b.tokenizer.Tokenize(text, b.maxTokens)
	copy(b.inputIDs.GetData(), ids)
	copy(b.attentionMask.GetData(), mask)
	copy(b.tokenTypeIDs.GetData(), types)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	out := make([]float32, b.dimensions)
	copy(out, b.output.GetData())
	return out, nil
}

// EmbedBatch calls Embed for each text, stopping at the first error or a cancelled context.
func (b *ONNXBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := b.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (b *ONNXBackend) Dimensions() int {
	return b.dimensions
}

// Close destroys the session and tensors.
func (b *ONNXBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.session != nil {
		err = b.session.Destroy()
		b.session = nil
	}
	b.destroyTensors()
	return err
}

func (b *ONNXBackend) destroyTensors() {
	if b.inputIDs != nil {
		_ = b.inputIDs.Destroy()
		b.inputIDs = nil
	}
	if b.attentionMask != nil {
		_ = b.attentionMask.Destroy()
		b.attentionMask = nil
	}
	if b.tokenTypeIDs != nil {
		_ = b.tokenTypeIDs.Destroy()
		b.tokenTypeIDs = nil
	}
	if b.output != nil {
		_ = b.output.Destroy()
		b.output = nil
	}
}
