package factory

import (
	"context"
	"fmt"
	"sync"

	"doc-chat-be/pkg/llm"
	"doc-chat-be/pkg/llm/gemini"
	"doc-chat-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewLazyLLMProvider returns a constructor memoized with sync.OnceValues:
// the first caller builds the shared provider, concurrent first callers
// wait instead of racing to construct two clients. A failed init is cached
// and re-surfaced so the caller can report a configuration error without
// crashing.
func NewLazyLLMProvider(providerType, modelName, baseURL, apiKey string) func() (llm.LLMProvider, error) {
	return sync.OnceValues(func() (llm.LLMProvider, error) {
		return NewLLMProvider(providerType, modelName, baseURL, apiKey)
	})
}

// lazyProvider defers construction to the first actual model call. It lets
// the composition root hand out a single shared provider without paying
// init cost (or failing) at startup.
type lazyProvider struct {
	build func() (llm.LLMProvider, error)
}

func NewDeferredProvider(providerType, modelName, baseURL, apiKey string) llm.LLMProvider {
	return &lazyProvider{build: NewLazyLLMProvider(providerType, modelName, baseURL, apiKey)}
}

func (p *lazyProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	inner, err := p.build()
	if err != nil {
		return "", err
	}
	return inner.Chat(ctx, history, options...)
}

func (p *lazyProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	inner, err := p.build()
	if err != nil {
		return "", err
	}
	return inner.Generate(ctx, prompt, options...)
}
