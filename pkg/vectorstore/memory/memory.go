// Package memory provides a per-session in-memory vector index using
// brute-force cosine similarity. Vectors are expected to be L2-normalized
// by the embedding provider, so similarity reduces to a dot product.
package memory

import (
	"errors"
	"sort"
	"sync"

	"doc-chat-be/pkg/store"
)

type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []store.Chunk
}

var _ store.VectorIndex = &Index{}

func NewIndex() *Index {
	return &Index{}
}

// Add appends a batch of (chunk, vector) pairs. The first batch fixes the
// dimension; later batches must match it. The index is append-only.
func (idx *Index) Add(chunks []store.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != idx.dimension {
			return errors.New("vector dimension mismatch")
		}
	}

	idx.chunks = append(idx.chunks, chunks...)
	idx.vectors = append(idx.vectors, vectors...)
	return nil
}

// Search returns the topK chunks ranked by cosine similarity to vector.
func (idx *Index) Search(vector []float32, topK int) []store.ScoredChunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}
	if len(idx.vectors) == 0 {
		return nil
	}

	scored := make([]store.ScoredChunk, len(idx.vectors))
	for i := range idx.vectors {
		scored[i] = store.ScoredChunk{
			Chunk: idx.chunks[i],
			Score: dot(idx.vectors[i], vector),
		}
	}

	// Stable sort keeps document order as the tie-break, so results are
	// deterministic for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
