package store

import "time"

// IndexStatus tracks the lifecycle of a session's vector index.
type IndexStatus string

const (
	IndexNotCreated IndexStatus = "not_created"
	IndexCreating   IndexStatus = "creating"
	IndexReady      IndexStatus = "ready"
	IndexDegraded   IndexStatus = "degraded" // index build failed, lexical fallback only
	IndexError      IndexStatus = "error"
)

// ChunkMetadata carries the provenance of a chunk.
type ChunkMetadata struct {
	Source     string    `json:"source"`
	Position   int       `json:"position"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Chunk is the unit of retrieval: a bounded slice of the source document.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ScoredChunk pairs a chunk with a similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// VectorIndex is the nearest-neighbor index owned by a session.
// Implementations must be safe for concurrent use; Add is append-only.
type VectorIndex interface {
	Add(chunks []Chunk, vectors [][]float32) error
	Search(vector []float32, topK int) []ScoredChunk
	Len() int
}

// ErrorEntry is one row of a session's server-side error log.
type ErrorEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Session binds one uploaded document to its derived chunks and index.
// The Store owns all Session values; other components operate on borrowed
// references scoped to a single request.
type Session struct {
	ID           string
	DocumentName string
	Chunks       []Chunk
	Index        VectorIndex
	IndexStatus  IndexStatus

	// IndexedChunks / IndexComplete expose stride-sampling coverage so
	// callers can detect a partially indexed document.
	IndexedChunks int
	IndexComplete bool

	Errors         []ErrorEntry
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// RecordError appends to the session's error log.
func (s *Session) RecordError(errType, message string) {
	s.Errors = append(s.Errors, ErrorEntry{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// HasIndex reports whether vector search is currently possible.
func (s *Session) HasIndex() bool {
	return s.Index != nil && s.Index.Len() > 0 && s.IndexStatus == IndexReady
}

// HasChunks reports whether lexical search is currently possible.
func (s *Session) HasChunks() bool {
	return len(s.Chunks) > 0
}
