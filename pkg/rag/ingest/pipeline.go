// Package ingest turns an uploaded document into a session's chunk list
// and vector index. The pipeline degrades rather than fails: any index
// build problem keeps the chunks for lexical search and marks the index
// degraded instead of rejecting the upload.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/chunker"
	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/extract"
	"doc-chat-be/pkg/store"
	"doc-chat-be/pkg/vectorstore/memory"
)

type Config struct {
	MaxUploadBytes    int
	AllowedExtensions []string
	MaxIndexedChunks  int
	MaxBatchRetries   int
	BaseTimeout       time.Duration
	TimeoutPerMB      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxUploadBytes:    10 * 1024 * 1024,
		AllowedExtensions: []string{".pdf", ".txt", ".md", ".docx"},
		MaxIndexedChunks:  300,
		MaxBatchRetries:   3,
		BaseTimeout:       60 * time.Second,
		TimeoutPerMB:      15 * time.Second,
	}
}

// Result summarizes one ingestion run. Warning is set when the pipeline
// succeeded in degraded form (chunks kept, no vector index).
type Result struct {
	DocumentName  string            `json:"document_name"`
	ChunkCount    int               `json:"chunk_count"`
	IndexedChunks int               `json:"indexed_chunks"`
	IndexComplete bool              `json:"index_complete"`
	Status        store.IndexStatus `json:"index_status"`
	Warning       string            `json:"warning,omitempty"`
}

type Pipeline struct {
	extractor *extract.Extractor
	embedder  embedding.EmbeddingProvider
	sessions  *store.Store
	logger    logger.ILogger
	config    Config
}

func NewPipeline(embedder embedding.EmbeddingProvider, sessions *store.Store, log logger.ILogger, config Config) *Pipeline {
	if config.MaxIndexedChunks <= 0 {
		config.MaxIndexedChunks = 300
	}
	if config.MaxBatchRetries <= 0 {
		config.MaxBatchRetries = 3
	}
	return &Pipeline{
		extractor: extract.NewExtractor(),
		embedder:  embedder,
		sessions:  sessions,
		logger:    log,
		config:    config,
	}
}

// Ingest runs the full upload pipeline for an existing session. Validation
// failures leave the session untouched; extraction and splitting failures
// record an error and roll the status back; index build failures degrade.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, content []byte, filename string) (*Result, error) {
	if err := p.Validate(content, filename); err != nil {
		return nil, err
	}

	if _, ok := p.sessions.Get(sessionID); !ok {
		return nil, apperrors.New(apperrors.KindSession, "session not found: "+sessionID)
	}

	p.sessions.Update(sessionID, func(s *store.Session) {
		s.IndexStatus = store.IndexCreating
	})

	// Overall deadline scales with size so big PDFs get proportionally
	// more time without letting a stuck provider hang the upload forever.
	timeout := p.config.BaseTimeout + time.Duration(len(content)/(1024*1024))*p.config.TimeoutPerMB
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()

	// 1. Extract plain text.
	text, err := p.extractor.ExtractFilename(content, filename)
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = fmt.Errorf("document produced no extractable text")
		}
		p.failBeforeChunks(sessionID, "text_extraction", err)
		return nil, apperrors.Wrap(apperrors.KindTextExtraction, "failed to extract text from "+filename, err)
	}

	// 2. Tiered chunking.
	tier := chunker.TierFor(utf8.RuneCountInString(text))
	pieces := chunker.Split(text, tier.Config())
	if len(pieces) == 0 {
		err := fmt.Errorf("splitting produced zero chunks")
		p.failBeforeChunks(sessionID, "document_splitting", err)
		return nil, apperrors.Wrap(apperrors.KindDocumentSplitting, "failed to split "+filename, err)
	}

	uploadedAt := time.Now()
	chunks := make([]store.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = store.Chunk{
			Content: piece,
			Metadata: store.ChunkMetadata{
				Source:     filename,
				Position:   i,
				UploadedAt: uploadedAt,
			},
		}
	}

	// 3. Chunks are stored before the index build. Whatever happens next,
	// lexical search over the full document is possible.
	p.sessions.Update(sessionID, func(s *store.Session) {
		s.DocumentName = filename
		s.Chunks = chunks
	})

	// 4. Cap the indexed subset with stride sampling for very large docs.
	toIndex := chunks
	indexComplete := true
	if len(chunks) > p.config.MaxIndexedChunks {
		toIndex = strideSample(chunks, p.config.MaxIndexedChunks)
		indexComplete = false
		p.logger.Warn("ingest", "chunk count exceeds index ceiling, sampling", map[string]interface{}{
			"session_id":   sessionID,
			"total_chunks": len(chunks),
			"indexed":      len(toIndex),
		})
	}

	// 5. Batched embedding + index build.
	index, buildErr := p.buildIndex(ctx, toIndex, tier.BatchSize)
	if buildErr != nil {
		if ctx.Err() != nil {
			// The overall deadline expired mid-build. The session still
			// has its chunks, so lexical search keeps working.
			p.degrade(sessionID, "timeout", buildErr)
			return nil, apperrors.Wrap(apperrors.KindTimeout, "ingestion timed out for "+filename, buildErr)
		}
		p.degrade(sessionID, "vector_store", buildErr)
		p.logger.Error("ingest", "index build failed, continuing without vector search", map[string]interface{}{
			"session_id": sessionID,
			"error":      buildErr.Error(),
		})
		return &Result{
			DocumentName:  filename,
			ChunkCount:    len(chunks),
			IndexedChunks: 0,
			IndexComplete: false,
			Status:        store.IndexDegraded,
			Warning:       "Document indexed for keyword search only; semantic search is unavailable for this session.",
		}, nil
	}

	p.sessions.Update(sessionID, func(s *store.Session) {
		s.Index = index
		s.IndexStatus = store.IndexReady
		s.IndexedChunks = index.Len()
		s.IndexComplete = indexComplete
	})

	p.logger.Info("ingest", "document ingested", map[string]interface{}{
		"session_id":     sessionID,
		"document":       filename,
		"tier":           tier.Name,
		"chunks":         len(chunks),
		"indexed":        index.Len(),
		"index_complete": indexComplete,
		"took_ms":        time.Since(started).Milliseconds(),
	})

	return &Result{
		DocumentName:  filename,
		ChunkCount:    len(chunks),
		IndexedChunks: index.Len(),
		IndexComplete: indexComplete,
		Status:        store.IndexReady,
	}, nil
}

// Validate runs the terminal upload checks without touching any session.
// Callers that mutate session state before ingesting (reset on re-upload,
// fresh session creation) call this first so a rejected upload changes
// nothing.
func (p *Pipeline) Validate(content []byte, filename string) error {
	if len(content) == 0 {
		return apperrors.New(apperrors.KindValidation, "uploaded file is empty")
	}
	if p.config.MaxUploadBytes > 0 && len(content) > p.config.MaxUploadBytes {
		return apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("file exceeds the %d byte upload limit", p.config.MaxUploadBytes))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range p.config.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return apperrors.New(apperrors.KindValidation,
		fmt.Sprintf("unsupported file type %q (allowed: %s)", ext, strings.Join(p.config.AllowedExtensions, ", ")))
}

// buildIndex embeds chunks batch by batch with per-batch retries. One
// failed batch fails the whole build; partial indexes would silently bias
// retrieval toward the front of the document.
func (p *Pipeline) buildIndex(ctx context.Context, chunks []store.Chunk, batchSize int) (*memory.Index, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	index := memory.NewIndex()

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = 2 * time.Second

		vectors, err := backoff.Retry(ctx, func() ([][]float32, error) {
			return p.embedder.GenerateBatch(texts, embedding.TaskRetrievalDocument)
		}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(p.config.MaxBatchRetries)))
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end-1, err)
		}

		if err := index.Add(batch, vectors); err != nil {
			return nil, fmt.Errorf("indexing batch %d-%d: %w", start, end-1, err)
		}
	}

	return index, nil
}

// strideSample picks at most max chunks spread evenly across the document,
// always including the first chunk. Deterministic for a given input.
func strideSample(chunks []store.Chunk, max int) []store.Chunk {
	if len(chunks) <= max {
		return chunks
	}
	stride := (len(chunks) + max - 1) / max
	sampled := make([]store.Chunk, 0, max)
	for i := 0; i < len(chunks) && len(sampled) < max; i += stride {
		sampled = append(sampled, chunks[i])
	}
	return sampled
}

// failBeforeChunks rolls the session back to not_created: nothing usable
// was produced, so the session looks like it never saw an upload.
func (p *Pipeline) failBeforeChunks(sessionID, errType string, err error) {
	p.sessions.Update(sessionID, func(s *store.Session) {
		s.IndexStatus = store.IndexNotCreated
		s.RecordError(errType, err.Error())
	})
}

func (p *Pipeline) degrade(sessionID, errType string, err error) {
	p.sessions.Update(sessionID, func(s *store.Session) {
		s.IndexStatus = store.IndexDegraded
		s.IndexedChunks = 0
		s.IndexComplete = false
		s.RecordError(errType, err.Error())
	})
}
