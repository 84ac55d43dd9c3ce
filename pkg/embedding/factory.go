package embedding

import (
	"fmt"
	"time"
)

// NewProvider builds the configured embedding provider wrapped in the TTL
// cache. The returned instance is shared process-wide so ingestion and
// query embeddings always come from the same model.
func NewProvider(providerType, apiKey, baseURL, model string, cacheTTL time.Duration) (EmbeddingProvider, error) {
	var inner EmbeddingProvider
	switch providerType {
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires GOOGLE_GEMINI_API_KEY")
		}
		inner = NewGeminiProvider(apiKey)
	case "ollama":
		inner = NewOllamaProvider(baseURL, model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
	return NewCachedProvider(inner, cacheTTL), nil
}
