package embedding

import (
	"crypto/md5"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider decorates another provider with an in-memory TTL cache.
// Query embeddings repeat often (users re-ask similar questions), so a hit
// saves a network round-trip to the embedding provider.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *cache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) EmbeddingProvider {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedProvider{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	key := cacheKey(text, taskType)
	if x, found := p.cache.Get(key); found {
		return x.(*EmbeddingResponse), nil
	}

	res, err := p.inner.Generate(text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

// GenerateBatch delegates straight to the inner provider. Document batches
// are one-shot per upload; caching them would only bloat memory.
func (p *CachedProvider) GenerateBatch(texts []string, taskType string) ([][]float32, error) {
	return p.inner.GenerateBatch(texts, taskType)
}

func cacheKey(text, taskType string) string {
	return fmt.Sprintf("%s:%x", taskType, md5.Sum([]byte(text)))
}
