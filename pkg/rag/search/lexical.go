package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"doc-chat-be/pkg/store"
)

const (
	minTermLen         = 3
	fullMatchBonus     = 1000
	defaultLexicalTopK = 3
)

// LexicalSearch scores chunks by term overlap, independent of embeddings.
// It is the provider-free fallback: pure, fast, and deterministic for a
// given chunk list and query.
func LexicalSearch(chunks []store.Chunk, query string, topK int) []Result {
	if topK <= 0 {
		topK = defaultLexicalTopK
	}

	terms := tokenizeQuery(query)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if len(terms) == 0 && queryLower == "" {
		return nil
	}

	type scored struct {
		position int
		score    int
	}

	var hits []scored
	for i, chunk := range chunks {
		contentLower := strings.ToLower(chunk.Content)

		score := 0
		for _, term := range terms {
			// Occurrences weighted by term length in runes: longer terms
			// carry more signal than short common words.
			score += strings.Count(contentLower, term) * utf8.RuneCountInString(term)
		}
		if queryLower != "" && strings.Contains(contentLower, queryLower) {
			score += fullMatchBonus
		}

		if score > 0 {
			hits = append(hits, scored{position: i, score: score})
		}
	}

	// Stable sort with document order as tie-break keeps output
	// deterministic.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if topK > len(hits) {
		topK = len(hits)
	}

	results := make([]Result, 0, topK)
	for _, h := range hits[:topK] {
		chunk := chunks[h.position]
		results = append(results, Result{
			Content:  chunk.Content,
			Score:    float32(h.score),
			HasScore: true,
			Source:   chunk.Metadata.Source,
			Strategy: StrategyText,
		})
	}
	return results
}

// tokenizeQuery lowercases and splits the query, dropping terms shorter
// than minTermLen (articles, particles, noise).
func tokenizeQuery(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if utf8.RuneCountInString(f) >= minTermLen {
			terms = append(terms, f)
		}
	}
	return terms
}
