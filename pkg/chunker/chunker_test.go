package chunker

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	if got := Split("", Config{ChunkSize: 100, Overlap: 20}); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := Split("   \n\n  ", Config{ChunkSize: 100, Overlap: 20}); got != nil {
		t.Errorf("whitespace-only input should yield no chunks, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	text := "a short document"
	got := Split(text, Config{ChunkSize: 100, Overlap: 20})
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split = %v, want single verbatim chunk", got)
	}
}

func TestSplitSizeAndOverlapBounds(t *testing.T) {
	// Build a few paragraphs of repetitive but separator-rich text.
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%7 == 6 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	cfg := Config{ChunkSize: 200, Overlap: 40}
	chunks := Split(text, cfg)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := len([]rune(c)); n > cfg.ChunkSize {
			t.Errorf("chunk %d length %d exceeds size %d", i, n, cfg.ChunkSize)
		}
	}

	// Consecutive chunks share exactly Overlap runes: the next chunk starts
	// Overlap runes before the previous one ended.
	for i := 0; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i])
		next := []rune(chunks[i+1])
		if len(prev) < cfg.Overlap || len(next) < cfg.Overlap {
			continue
		}
		suffix := string(prev[len(prev)-cfg.Overlap:])
		prefix := string(next[:cfg.Overlap])
		if suffix != prefix {
			t.Errorf("chunks %d/%d do not share %d runes of context", i, i+1, cfg.Overlap)
		}
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("alpha beta gamma ", 10) // ~170 runes
	text := para + "\n\n" + para + "\n\n" + para

	chunks := Split(text, Config{ChunkSize: 200, Overlap: 20})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The first cut should land just after the paragraph break rather than
	// mid-word at exactly 200 runes.
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk should end at a paragraph break, got %q tail", chunks[0][len(chunks[0])-10:])
	}
}

func TestSplitForwardProgressWithHugeOverlap(t *testing.T) {
	text := strings.Repeat("x", 500)
	chunks := Split(text, Config{ChunkSize: 100, Overlap: 100})
	if len(chunks) == 0 {
		t.Fatal("expected chunks despite overlap >= size")
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		textLen  int
		wantName string
	}{
		{100, "small"},
		{19_999, "small"},
		{20_000, "medium"},
		{99_999, "medium"},
		{100_000, "large"},
		{5_000_000, "large"},
	}
	for _, tt := range tests {
		if got := TierFor(tt.textLen); got.Name != tt.wantName {
			t.Errorf("TierFor(%d) = %q, want %q", tt.textLen, got.Name, tt.wantName)
		}
	}
}
