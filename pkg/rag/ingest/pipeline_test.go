package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/store"
)

type stubEmbedder struct {
	fail      bool
	dim       int
	batchCall int32
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	vecs, err := s.GenerateBatch([]string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vecs[0]}}, nil
}

func (s *stubEmbedder) GenerateBatch(texts []string, taskType string) ([][]float32, error) {
	atomic.AddInt32(&s.batchCall, 1)
	if s.fail {
		return nil, errors.New("provider unavailable")
	}
	dim := s.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxBatchRetries = 1 // keep failure tests fast
	return cfg
}

func newTestPipeline(embedder embedding.EmbeddingProvider, cfg Config) (*Pipeline, *store.Store) {
	sessions := store.NewStore(time.Hour)
	return NewPipeline(embedder, sessions, logger.NewNopLogger(), cfg), sessions
}

func TestIngest_RejectsEmptyBuffer(t *testing.T) {
	p, sessions := newTestPipeline(&stubEmbedder{}, testConfig())
	sess := sessions.Create()

	_, err := p.Ingest(context.Background(), sess.ID, nil, "doc.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, store.IndexNotCreated, got.IndexStatus, "validation must not mutate the session")
	assert.Empty(t, got.Errors)
}

func TestIngest_RejectsUnsupportedExtension(t *testing.T) {
	p, sessions := newTestPipeline(&stubEmbedder{}, testConfig())
	sess := sessions.Create()

	_, err := p.Ingest(context.Background(), sess.ID, []byte("binary"), "malware.exe")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestIngest_RejectsOversizedUpload(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 10
	p, sessions := newTestPipeline(&stubEmbedder{}, cfg)
	sess := sessions.Create()

	_, err := p.Ingest(context.Background(), sess.ID, []byte("this is more than ten bytes"), "doc.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestIngest_UnknownSession(t *testing.T) {
	p, _ := newTestPipeline(&stubEmbedder{}, testConfig())

	_, err := p.Ingest(context.Background(), "nope", []byte("hello world"), "doc.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindSession, apperrors.KindOf(err))
}

func TestIngest_WhitespaceOnlyDocument(t *testing.T) {
	p, sessions := newTestPipeline(&stubEmbedder{}, testConfig())
	sess := sessions.Create()

	_, err := p.Ingest(context.Background(), sess.ID, []byte("   \n\t  \n"), "blank.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindTextExtraction, apperrors.KindOf(err))

	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, store.IndexNotCreated, got.IndexStatus)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "text_extraction", got.Errors[0].Type)
}

func TestIngest_HappyPath(t *testing.T) {
	p, sessions := newTestPipeline(&stubEmbedder{}, testConfig())
	sess := sessions.Create()

	text := strings.Repeat("The quarterly report shows steady growth. ", 100)
	res, err := p.Ingest(context.Background(), sess.ID, []byte(text), "report.txt")

	require.NoError(t, err)
	assert.Equal(t, store.IndexReady, res.Status)
	assert.True(t, res.IndexComplete)
	assert.Equal(t, res.ChunkCount, res.IndexedChunks)
	assert.Empty(t, res.Warning)

	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, store.IndexReady, got.IndexStatus)
	assert.Equal(t, "report.txt", got.DocumentName)
	assert.Equal(t, res.ChunkCount, len(got.Chunks))
	require.NotNil(t, got.Index)
	assert.Equal(t, res.IndexedChunks, got.Index.Len())

	for i, c := range got.Chunks {
		assert.Equal(t, i, c.Metadata.Position)
		assert.Equal(t, "report.txt", c.Metadata.Source)
	}
}

func TestIngest_DegradesOnEmbeddingFailure(t *testing.T) {
	p, sessions := newTestPipeline(&stubEmbedder{fail: true}, testConfig())
	sess := sessions.Create()

	text := strings.Repeat("Lexical search still has to work over this text. ", 50)
	res, err := p.Ingest(context.Background(), sess.ID, []byte(text), "doc.txt")

	require.NoError(t, err, "index build failure must not fail the upload")
	assert.Equal(t, store.IndexDegraded, res.Status)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, 0, res.IndexedChunks)

	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, store.IndexDegraded, got.IndexStatus)
	assert.NotEmpty(t, got.Chunks, "chunks are kept for lexical fallback")
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "vector_store", got.Errors[0].Type)
}

func TestIngest_StrideSamplingAboveCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIndexedChunks = 5
	stub := &stubEmbedder{}
	p, sessions := newTestPipeline(stub, cfg)
	sess := sessions.Create()

	// Paragraph-separated so the splitter produces many small chunks.
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString(strings.Repeat("Section content with enough words to stand alone. ", 15))
		b.WriteString("\n\n")
	}
	res, err := p.Ingest(context.Background(), sess.ID, []byte(b.String()), "big.txt")

	require.NoError(t, err)
	assert.Equal(t, store.IndexReady, res.Status)
	assert.False(t, res.IndexComplete)
	assert.LessOrEqual(t, res.IndexedChunks, 5)
	assert.Greater(t, res.ChunkCount, res.IndexedChunks)

	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, res.ChunkCount, len(got.Chunks), "full chunk list retained")
	assert.False(t, got.IndexComplete)
}

func TestStrideSample(t *testing.T) {
	chunks := make([]store.Chunk, 17)
	for i := range chunks {
		chunks[i].Metadata.Position = i
	}

	sampled := strideSample(chunks, 5)

	assert.LessOrEqual(t, len(sampled), 5)
	assert.Equal(t, 0, sampled[0].Metadata.Position, "first chunk always included")
	for i := 1; i < len(sampled); i++ {
		assert.Greater(t, sampled[i].Metadata.Position, sampled[i-1].Metadata.Position)
	}

	assert.Len(t, strideSample(chunks, 20), 17, "under the ceiling nothing is dropped")
}
