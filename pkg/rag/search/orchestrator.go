package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/store"
)

// NoContextSentinel is the canonical "nothing found" context block. The
// generator recognizes it and answers without spending a model call.
const NoContextSentinel = "No relevant information found in the document."

const (
	maxContextEntries = 5
	dedupPrefixLen    = 100

	// Hybrid budgets: each engine gets a fraction of the requested count
	// since the merged set is deduplicated afterwards.
	vectorBudgetRatio = 0.7
	textBudgetRatio   = 0.5

	// Score weights applied when merging strategies.
	vectorWeight = 1.2
	textWeight   = 0.8

	// A lexical hit on a passage the vector engine already found only
	// nudges its rank. Small enough to break ties, not reorder.
	tieBreakFactor = 0.1
)

// Orchestrator chooses and combines retrieval strategies per query.
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
	config            Config
}

// NewOrchestrator creates a new search orchestrator
func NewOrchestrator(embeddingProvider embedding.EmbeddingProvider, log logger.ILogger, config Config) *Orchestrator {
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		logger:            log,
		config:            config,
	}
}

// Execute selects a strategy based on query shape and available resources,
// runs it, and returns ranked deduplicated results. An empty result slice
// with a nil error means "searched fine, found nothing".
func (o *Orchestrator) Execute(ctx context.Context, session *store.Session, query string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTimeout, "search canceled", err)
	}

	hasIndex := session.HasIndex()
	hasChunks := session.HasChunks()
	if !hasIndex && !hasChunks {
		return nil, apperrors.New(apperrors.KindSearch, "no_resources: session has neither index nor chunks")
	}

	queryLen := len([]rune(strings.TrimSpace(query)))
	topK := o.config.TopK

	var strategy string
	switch {
	case queryLen < shortQueryLen:
		// Keyword-style query: embeds well, vector alone is enough.
		if hasIndex {
			strategy = StrategyVector
		} else {
			strategy = StrategyText
		}
	case queryLen > longQueryLen:
		// Narrative query: never pure vector as sole source.
		if hasIndex && hasChunks {
			strategy = StrategyHybrid
		} else {
			strategy = StrategyText
		}
	default:
		if hasIndex && hasChunks {
			strategy = StrategyHybrid
		} else if hasIndex {
			strategy = StrategyVector
		} else {
			strategy = StrategyText
		}
	}

	o.logger.Debug("search", "strategy selected", map[string]interface{}{
		"strategy":  strategy,
		"query_len": queryLen,
		"has_index": hasIndex,
	})

	switch strategy {
	case StrategyVector:
		results, err := VectorSearch(o.embeddingProvider, session.Index, query, topK, o.config.MinScore, o.config.MinChunkLen)
		if err != nil {
			// Provider failure degrades to lexical when possible.
			if hasChunks {
				o.logger.Warn("search", "vector search failed, falling back to lexical", map[string]interface{}{"error": err.Error()})
				return LexicalSearch(session.Chunks, query, topK), nil
			}
			return nil, apperrors.Wrap(apperrors.KindSearch, "vector search failed", err)
		}
		return results, nil
	case StrategyText:
		return LexicalSearch(session.Chunks, query, topK), nil
	default:
		return o.executeHybrid(session, query, topK), nil
	}
}

// executeHybrid runs both engines concurrently and merges their results.
func (o *Orchestrator) executeHybrid(session *store.Session, query string, topK int) []Result {
	vectorBudget := ceilRatio(topK, vectorBudgetRatio)
	textBudget := ceilRatio(topK, textBudgetRatio)

	var (
		wg            sync.WaitGroup
		vectorResults []Result
		textResults   []Result
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := VectorSearch(o.embeddingProvider, session.Index, query, vectorBudget, o.config.MinScore, o.config.MinChunkLen)
		if err != nil {
			o.logger.Warn("search", "hybrid: vector leg failed", map[string]interface{}{"error": err.Error()})
			return
		}
		vectorResults = results
	}()
	go func() {
		defer wg.Done()
		textResults = LexicalSearch(session.Chunks, query, textBudget)
	}()
	wg.Wait()

	return mergeHybrid(vectorResults, textResults, topK)
}

// mergeHybrid deduplicates by normalized content prefix and combines
// scores: vector weighted up, lexical weighted down. Lexical scores are
// unbounded term counts, so they are normalized by the leg's max before
// weighting.
func mergeHybrid(vectorResults, textResults []Result, topK int) []Result {
	type entry struct {
		result   Result
		combined float32
		order    int
	}

	merged := make(map[string]*entry)
	order := 0

	for _, r := range vectorResults {
		key := normalizePrefix(r.Content)
		if _, seen := merged[key]; seen {
			continue
		}
		r.Strategy = StrategyHybrid
		merged[key] = &entry{result: r, combined: r.Score * vectorWeight, order: order}
		order++
	}

	var maxText float32
	for _, r := range textResults {
		if r.Score > maxText {
			maxText = r.Score
		}
	}

	for _, r := range textResults {
		key := normalizePrefix(r.Content)
		norm := float32(0)
		if maxText > 0 {
			norm = r.Score / maxText
		}
		if existing, seen := merged[key]; seen {
			// Same passage found by both engines counts once; the
			// lexical agreement acts as a tie-break boost.
			existing.combined += norm * textWeight * tieBreakFactor
			continue
		}
		r.Strategy = StrategyHybrid
		r.Score = norm
		merged[key] = &entry{result: r, combined: norm * textWeight, order: order}
		order++
	}

	entries := make([]*entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].combined != entries[j].combined {
			return entries[i].combined > entries[j].combined
		}
		return entries[i].order < entries[j].order
	})

	if topK > len(entries) {
		topK = len(entries)
	}
	results := make([]Result, 0, topK)
	for _, e := range entries[:topK] {
		e.result.Score = e.combined
		results = append(results, e.result)
	}
	return results
}

// normalizePrefix builds the dedup key: lowercase, whitespace collapsed,
// first dedupPrefixLen runes.
func normalizePrefix(content string) string {
	collapsed := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	runes := []rune(collapsed)
	if len(runes) > dedupPrefixLen {
		runes = runes[:dedupPrefixLen]
	}
	return string(runes)
}

// FormatContext joins the top results into a single delimited context
// block for the generator. At most maxContextEntries entries are used; the
// block is bounded by the configured character budget, dropping whole
// trailing entries rather than cutting one mid-passage.
func (o *Orchestrator) FormatContext(results []Result) string {
	if len(results) == 0 {
		return NoContextSentinel
	}
	if len(results) > maxContextEntries {
		results = results[:maxContextEntries]
	}

	budget := o.config.ContextBudget
	var parts []string
	used := 0
	for _, r := range results {
		label := r.Source
		if label == "" {
			label = "document"
		}
		var header string
		if r.HasScore {
			header = fmt.Sprintf("[%s | relevance: %.2f]", label, r.Score)
		} else {
			header = fmt.Sprintf("[%s]", label)
		}
		part := header + "\n" + r.Content

		// Budget is in runes so multibyte documents fill it the same as
		// ASCII ones.
		cost := utf8.RuneCountInString(part)
		if len(parts) > 0 {
			cost += utf8.RuneCountInString(contextDelimiter)
		}
		if budget > 0 && used+cost > budget {
			break
		}
		parts = append(parts, part)
		used += cost
	}

	if len(parts) == 0 {
		// Budget too small for even one entry; better a sentinel than a
		// truncated passage.
		return NoContextSentinel
	}
	return strings.Join(parts, contextDelimiter)
}

const contextDelimiter = "\n\n---\n\n"

func ceilRatio(n int, ratio float64) int {
	v := int(float64(n)*ratio + 0.9999)
	if v < 1 {
		v = 1
	}
	return v
}
