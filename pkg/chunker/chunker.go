// Package chunker splits extracted text into overlapping passages sized for
// retrieval and generation context limits.
package chunker

import "strings"

type Config struct {
	ChunkSize int // max chunk length in runes
	Overlap   int // characters shared between consecutive chunks
}

// Tier bundles the size/overlap/batch policy selected by document length.
// Larger documents get larger chunks and batches; this is a throughput
// tradeoff, not a correctness one.
type Tier struct {
	Name      string
	ChunkSize int
	Overlap   int
	BatchSize int
}

// TierFor picks the chunking tier for a document of the given text length.
func TierFor(textLen int) Tier {
	switch {
	case textLen < 20_000:
		return Tier{Name: "small", ChunkSize: 800, Overlap: 150, BatchSize: 10}
	case textLen < 100_000:
		return Tier{Name: "medium", ChunkSize: 1200, Overlap: 200, BatchSize: 20}
	default:
		return Tier{Name: "large", ChunkSize: 1600, Overlap: 250, BatchSize: 30}
	}
}

func (t Tier) Config() Config {
	return Config{ChunkSize: t.ChunkSize, Overlap: t.Overlap}
}

// Split cuts text into chunks of at most cfg.ChunkSize runes. Cut points
// prefer paragraph breaks, then line breaks, then sentence ends, then word
// boundaries, searched within the last fifth of the window, so fragments
// stay as coherent as the size limit allows. Each chunk starts cfg.Overlap
// runes before the previous one ended.
func Split(text string, cfg Config) []string {
	size := cfg.ChunkSize
	overlap := cfg.Overlap
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 4 // fallback if overlap >= chunk size
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if total <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < total {
		end := start + size
		if end >= total {
			end = total
		} else {
			end = snapEnd(runes, start, end)
		}

		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		if end == total {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1 // guarantee forward progress
		}
		start = next
	}
	return chunks
}

// snapEnd moves the cut point backward to the best separator found within
// the last fifth of the window. Returns the original end when no separator
// is present there.
func snapEnd(runes []rune, start, end int) int {
	minEnd := start + (end-start)*4/5

	// Paragraph break
	for i := end - 2; i >= minEnd; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	// Line break
	for i := end - 1; i >= minEnd; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// Sentence end
	for i := end - 2; i >= minEnd; i-- {
		if isSentenceEnd(runes[i]) && runes[i+1] == ' ' {
			return i + 2
		}
	}
	// Word boundary
	for i := end - 1; i >= minEnd; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
