package memory

import (
	"testing"

	"doc-chat-be/pkg/store"
)

func chunk(content string) store.Chunk {
	return store.Chunk{Content: content}
}

func TestAddLengthMismatch(t *testing.T) {
	idx := NewIndex()
	err := idx.Add([]store.Chunk{chunk("a")}, [][]float32{{1, 0}, {0, 1}})
	if err == nil {
		t.Fatal("expected error on chunks/vectors length mismatch")
	}
}

func TestAddDimensionMismatch(t *testing.T) {
	idx := NewIndex()
	if err := idx.Add([]store.Chunk{chunk("a")}, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := idx.Add([]store.Chunk{chunk("b")}, [][]float32{{1, 0}}); err == nil {
		t.Fatal("expected error on dimension mismatch with first batch")
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	idx := NewIndex()
	err := idx.Add(
		[]store.Chunk{chunk("x axis"), chunk("y axis"), chunk("diagonal")},
		[][]float32{{1, 0}, {0, 1}, {0.7071, 0.7071}},
	)
	if err != nil {
		t.Fatal(err)
	}

	results := idx.Search([]float32{1, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Chunk.Content != "x axis" {
		t.Errorf("top result = %q, want %q", results[0].Chunk.Content, "x axis")
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted descending by score")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := NewIndex()
	if results := idx.Search([]float32{1, 0}, 3); results != nil {
		t.Errorf("expected nil results from empty index, got %d", len(results))
	}
}

func TestLenIsCumulative(t *testing.T) {
	idx := NewIndex()
	_ = idx.Add([]store.Chunk{chunk("a")}, [][]float32{{1, 0}})
	_ = idx.Add([]store.Chunk{chunk("b")}, [][]float32{{0, 1}})
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
}
