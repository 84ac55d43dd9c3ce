package search

import (
	"fmt"

	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/store"
)

// VectorSearch embeds the query with the same provider used at ingestion
// and returns the nearest chunks. Results below minScore are dropped (a
// small index produces confident-looking false positives), as are chunks
// too short to be usable context.
func VectorSearch(
	provider embedding.EmbeddingProvider,
	index store.VectorIndex,
	query string,
	topK int,
	minScore float64,
	minChunkLen int,
) ([]Result, error) {

	embeddingRes, err := provider.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	// Over-fetch so post-filtering still fills topK.
	scored := index.Search(embeddingRes.Embedding.Values, topK*2)

	results := make([]Result, 0, topK)
	for _, s := range scored {
		if float64(s.Score) < minScore {
			continue
		}
		if len([]rune(s.Chunk.Content)) < minChunkLen {
			continue
		}
		results = append(results, Result{
			Content:  s.Chunk.Content,
			Score:    s.Score,
			HasScore: true,
			Source:   s.Chunk.Metadata.Source,
			Strategy: StrategyVector,
		})
		if len(results) == topK {
			break
		}
	}
	return results, nil
}
