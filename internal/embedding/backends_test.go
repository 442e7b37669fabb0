package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

func TestMockBackend_Deterministic(t *testing.T) {
	b := NewMockBackend(0)
	if b.Dimensions() != 384 {
		t.Errorf("default dimensions=%d", b.Dimensions())
	}
	ctx := context.Background()
	v1, _ := b.Embed(ctx, "hs code 0901")
	v2, _ := b.Embed(ctx, "hs code 0901")
	v3, _ := b.Embed(ctx, "hs code 0902")
	same, diff := true, false
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
		}
		if v1[i] != v3[i] {
			diff = true
		}
	}
	if !same || !diff {
		t.Error("mock embeddings should be deterministic per text and differ across texts")
	}
}

type fakeEino struct {
	dim   int
	calls int
}

func (f *fakeEino) EmbedStrings(ctx context.Context, texts []string, opts ...einoembed.Option) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i := range texts {
		v := make([]float64, f.dim)
		v[i%f.dim] = float64(i + 1)
		out[i] = v
	}
	return out, nil
}

var _ einoembed.Embedder = (*fakeEino)(nil)

func TestEinoBackend(t *testing.T) {
	fake := &fakeEino{dim: 3}
	b := NewEinoBackend(fake, 3)
	vecs, err := b.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[1][1] != 2 {
		t.Errorf("got %v", vecs)
	}
	v, err := b.Embed(context.Background(), "a")
	if err != nil || v[0] != 1 {
		t.Errorf("Embed: %v %v", v, err)
	}
	if b.Dimensions() != 3 {
		t.Errorf("Dimensions=%d", b.Dimensions())
	}

	svc, err := NewService(b)
	if err != nil {
		t.Fatal(err)
	}
	q, err := svc.EmbedQuery(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if q[0] != 1 {
		t.Errorf("normalized query=%v", q)
	}
}

func TestOpenAIBackend(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// Reverse order to check that results are placed by index.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Embedding: []float32{float32(j), 1}, Index: j}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend("test-key", srv.URL, "text-embedding-3-small", 2, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := b.EmbedBatch(context.Background(), []string{"x", "y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	if gotModel != "text-embedding-3-small" {
		t.Errorf("model=%q", gotModel)
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("vecs[%d]=%v, want first component %d", i, v, i)
		}
	}
}

func TestOpenAIBackend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend("test-key", srv.URL, "", 2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EmbedQuery(context.Background(), "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error=%v, want ErrBackendUnavailable", err)
	}
}

func TestNewOpenAIBackend_NoKey(t *testing.T) {
	if _, err := NewOpenAIBackend("", "", "", 0, 0); err == nil {
		t.Error("expected error without api key")
	}
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")

	b, err := NewBackend(ctx, BackendConfig{Provider: "mock", Dimensions: 8})
	if err != nil {
		t.Fatal(err)
	}
	if b.Dimensions() != 8 {
		t.Errorf("Dimensions=%d", b.Dimensions())
	}
	if _, err := NewBackend(ctx, BackendConfig{}); err != nil {
		t.Errorf("empty provider should default to mock: %v", err)
	}
	if _, err := NewBackend(ctx, BackendConfig{Provider: "bogus"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("error=%v, want ErrUnknownProvider", err)
	}
	if _, err := NewBackend(ctx, BackendConfig{Provider: "openai"}); err == nil {
		t.Error("openai without key should fail")
	}
	if _, err := NewBackend(ctx, BackendConfig{Provider: "ark"}); err == nil {
		t.Error("ark without key should fail")
	}
	t.Setenv("OPENAI_API_KEY", "from-env")
	if _, err := NewBackend(ctx, BackendConfig{Provider: "OpenAI", Dimensions: 4}); err != nil {
		t.Errorf("openai with env key: %v", err)
	}
	if _, err := NewBackend(ctx, BackendConfig{Provider: "onnx"}); err == nil {
		t.Error("onnx without model path should fail")
	}
}
