package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted by NewBackend.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderONNX   = "onnx"
)

// BackendConfig selects and configures an embedding backend.
type BackendConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Dimensions     int
	TimeoutSeconds int
	ModelPath      string
	MaxTokens      int
}

// NewBackend creates the backend named by cfg.Provider. API keys fall back to
// OPENAI_API_KEY / ARK_API_KEY when not configured.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderMock:
		return NewMockBackend(cfg.Dimensions), nil
	case ProviderOpenAI:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("OPENAI_BASE_URL"))
		timeout := 30 * time.Second
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		b, err := NewOpenAIBackend(apiKey, baseURL, cfg.Model, cfg.Dimensions, timeout)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ProviderArk:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("ARK_API_KEY"))
		baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("ARK_BASE_URL"))
		model := firstNonEmpty(cfg.Model, os.Getenv("ARK_EMBED_MODEL"))
		b, err := NewArkBackend(ctx, apiKey, baseURL, model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ProviderONNX:
		b, err := NewONNXBackend(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: mock, openai, ark, onnx)", ErrUnknownProvider, cfg.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
