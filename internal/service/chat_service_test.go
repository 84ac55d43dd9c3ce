package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-chat-be/internal/dto"
	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/events"
	"doc-chat-be/pkg/llm"
	"doc-chat-be/pkg/rag/ingest"
	"doc-chat-be/pkg/rag/response"
	"doc-chat-be/pkg/rag/search"
	"doc-chat-be/pkg/store"
)

type stubEmbedder struct {
	calls int32
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	atomic.AddInt32(&s.calls, 1)
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0, 0}},
	}, nil
}

func (s *stubEmbedder) GenerateBatch(texts []string, taskType string) ([][]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

type stubLLM struct {
	answer string
	calls  int32
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.answer, nil
}

type serviceFixture struct {
	svc      IChatService
	sessions *store.Store
	embedder *stubEmbedder
	model    *stubLLM
	pubSub   *gochannel.GoChannel
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	log := logger.NewNopLogger()
	sessions := store.NewStore(time.Hour)
	embedder := &stubEmbedder{}
	model := &stubLLM{answer: "The document says the project shipped in March."}

	ingestCfg := ingest.DefaultConfig()
	ingestCfg.MaxBatchRetries = 1
	pipeline := ingest.NewPipeline(embedder, sessions, log, ingestCfg)

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})

	svc := NewChatService(
		sessions,
		embedder,
		model,
		pipeline,
		search.DefaultConfig(),
		response.DefaultConfig(),
		nil,
		pubSub,
		log,
	)
	return &serviceFixture{svc: svc, sessions: sessions, embedder: embedder, model: model, pubSub: pubSub}
}

func (f *serviceFixture) uploadDoc(t *testing.T) string {
	t.Helper()
	text := strings.Repeat("The project shipped in March after a long beta. ", 40)
	res, err := f.svc.Upload(context.Background(), "", []byte(text), "notes.txt")
	require.NoError(t, err)
	require.Equal(t, string(store.IndexReady), res.IndexStatus)
	return res.SessionId
}

func TestUpload_NewSession(t *testing.T) {
	f := newFixture(t)

	id := f.uploadDoc(t)

	sess, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", sess.DocumentName)
	assert.Equal(t, store.IndexReady, sess.IndexStatus)
}

func TestUpload_UnknownSessionRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), "missing", []byte("hello"), "doc.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindSession, apperrors.KindOf(err))
}

func TestUpload_ReplacesExistingDocument(t *testing.T) {
	f := newFixture(t)
	id := f.uploadDoc(t)

	res, err := f.svc.Upload(context.Background(), id, []byte(strings.Repeat("A fresh document about something else entirely. ", 30)), "other.txt")

	require.NoError(t, err)
	assert.Equal(t, id, res.SessionId)

	sess, _ := f.sessions.Get(id)
	assert.Equal(t, "other.txt", sess.DocumentName)
}

func TestUpload_RejectedReuploadKeepsExistingDocument(t *testing.T) {
	f := newFixture(t)
	id := f.uploadDoc(t)

	for _, bad := range []struct {
		name     string
		content  []byte
		filename string
	}{
		{"empty buffer", nil, "doc.txt"},
		{"bad extension", []byte("binary"), "malware.exe"},
	} {
		_, err := f.svc.Upload(context.Background(), id, bad.content, bad.filename)
		require.Error(t, err, bad.name)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), bad.name)
	}

	// The prior document survives untouched and stays queryable.
	sess, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, store.IndexReady, sess.IndexStatus)
	assert.Equal(t, "notes.txt", sess.DocumentName)
	assert.NotEmpty(t, sess.Chunks)

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: id, Question: "When did the project ship?"})
	require.NoError(t, err)
	assert.False(t, res.RequiresUpload)
	assert.Equal(t, "The document says the project shipped in March.", res.Response)
}

func TestUpload_RejectedFirstUploadCreatesNoSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), "", nil, "doc.txt")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, 0, f.sessions.Len(), "rejected upload must not leave an orphaned session")
}

func TestUpload_PublishesIngestionEvent(t *testing.T) {
	f := newFixture(t)
	msgs, err := f.pubSub.Subscribe(context.Background(), events.TopicDocumentIngested)
	require.NoError(t, err)

	id := f.uploadDoc(t)

	select {
	case msg := <-msgs:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, id, payload["session_id"])
		assert.Equal(t, "notes.txt", payload["document"])
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no ingestion event published")
	}
}

func TestQuery_MissingSessionGuidesUpload(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: "nope", Question: "hello?"})

	require.NoError(t, err)
	assert.True(t, res.RequiresUpload)
	assert.NotEmpty(t, res.Response)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.embedder.calls), "no provider call without a document")
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.model.calls))
}

func TestQuery_SessionWithoutDocumentGuidesUpload(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: sess.ID, Question: "hello?"})

	require.NoError(t, err)
	assert.True(t, res.RequiresUpload)
}

func TestQuery_WhileIndexBuilding(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	f.sessions.Update(sess.ID, func(s *store.Session) {
		s.IndexStatus = store.IndexCreating
	})

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: sess.ID, Question: "hello?"})

	require.NoError(t, err)
	assert.False(t, res.RequiresUpload)
	assert.Equal(t, msgIndexBuilding, res.Response)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.model.calls))
}

func TestQuery_AnswersFromDocument(t *testing.T) {
	f := newFixture(t)
	id := f.uploadDoc(t)

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: id, Question: "When did the project ship?"})

	require.NoError(t, err)
	assert.Equal(t, "The document says the project shipped in March.", res.Response)
	assert.Contains(t, res.Sources, "notes.txt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.model.calls))
}

func TestQuery_NoMatchSkipsModel(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	// Degraded session with chunks only: lexical search, no vector index.
	f.sessions.Update(sess.ID, func(s *store.Session) {
		s.IndexStatus = store.IndexDegraded
		s.Chunks = []store.Chunk{
			{Content: strings.Repeat("nothing about the asked topic here ", 3), Metadata: store.ChunkMetadata{Source: "doc.txt"}},
		}
	})

	res, err := f.svc.Query(context.Background(), &dto.QueryRequest{SessionId: sess.ID, Question: "quarterly zebra forecast?"})

	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.model.calls), "empty context must not reach the model")
	assert.NotEmpty(t, res.Response)
}

func TestReset_Idempotent(t *testing.T) {
	f := newFixture(t)
	id := f.uploadDoc(t)

	res, err := f.svc.Reset(context.Background(), &dto.ResetRequest{SessionId: id})
	require.NoError(t, err)
	assert.True(t, res.Reset)

	sess, _ := f.sessions.Get(id)
	assert.Equal(t, store.IndexNotCreated, sess.IndexStatus)
	assert.Empty(t, sess.Chunks)

	res, err = f.svc.Reset(context.Background(), &dto.ResetRequest{SessionId: id})
	require.NoError(t, err)
	assert.True(t, res.Reset, "resetting an already clean session still succeeds")

	res, err = f.svc.Reset(context.Background(), &dto.ResetRequest{SessionId: "missing"})
	require.NoError(t, err)
	assert.False(t, res.Reset)
}

func TestStatus_Liveness(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Status(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Nil(t, res.Session)
}

func TestStatus_SessionDetail(t *testing.T) {
	f := newFixture(t)
	id := f.uploadDoc(t)

	res, err := f.svc.Status(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.True(t, res.Session.Exists)
	assert.Equal(t, string(store.IndexReady), res.Session.IndexStatus)
	assert.Equal(t, "notes.txt", res.Session.DocumentName)
	assert.Greater(t, res.Session.ChunkCount, 0)

	res, err = f.svc.Status(context.Background(), "missing")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.False(t, res.Session.Exists)
}
