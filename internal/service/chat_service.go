package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

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

const (
	msgRequiresUpload = "Please upload a document first. I can only answer questions about an uploaded document."
	msgIndexBuilding  = "Your document is still being processed. Please try again in a few seconds."
)

// IChatService is the application-facing API for the document QA flow.
type IChatService interface {
	Upload(ctx context.Context, sessionId string, content []byte, filename string) (*dto.UploadResponse, error)
	Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error)
	Reset(ctx context.Context, request *dto.ResetRequest) (*dto.ResetResponse, error)
	Status(ctx context.Context, sessionId string) (*dto.StatusResponse, error)
}

type chatService struct {
	sessions           *store.Store
	pipeline           *ingest.Pipeline
	searchOrchestrator *search.Orchestrator
	responseGenerator  *response.Generator
	qaProxy            *QAProxyClient // nil when not configured
	publisher          message.Publisher
	logger             logger.ILogger
	startedAt          time.Time
}

func NewChatService(
	sessions *store.Store,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	pipeline *ingest.Pipeline,
	searchConfig search.Config,
	generationConfig response.Config,
	qaProxy *QAProxyClient,
	publisher message.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessions:           sessions,
		pipeline:           pipeline,
		searchOrchestrator: search.NewOrchestrator(embeddingProvider, log, searchConfig),
		responseGenerator:  response.NewGenerator(llmProvider, log, generationConfig),
		qaProxy:            qaProxy,
		publisher:          publisher,
		logger:             log,
		startedAt:          time.Now(),
	}
}

// Upload ingests a document into the given session, creating the session
// when sessionId is empty. A re-upload into an existing session replaces
// its document.
func (c *chatService) Upload(ctx context.Context, sessionId string, content []byte, filename string) (*dto.UploadResponse, error) {
	// Validation comes first: a rejected upload must neither wipe an
	// existing session's document nor leave an orphaned new session.
	if err := c.pipeline.Validate(content, filename); err != nil {
		return nil, err
	}

	if sessionId == "" {
		sessionId = c.sessions.Create().ID
	} else if _, ok := c.sessions.Get(sessionId); !ok {
		return nil, apperrors.New(apperrors.KindSession, "session not found: "+sessionId)
	} else {
		// Replacing the document starts from a clean slate.
		c.sessions.Reset(sessionId)
	}

	result, err := c.pipeline.Ingest(ctx, sessionId, content, filename)
	if err != nil {
		return nil, err
	}

	c.publishIngested(sessionId, result)

	return &dto.UploadResponse{
		SessionId:     sessionId,
		DocumentName:  result.DocumentName,
		IndexStatus:   string(result.Status),
		ChunkCount:    result.ChunkCount,
		IndexedChunks: result.IndexedChunks,
		IndexComplete: result.IndexComplete,
		Warning:       result.Warning,
	}, nil
}

func (c *chatService) Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	session, ok := c.sessions.Get(request.SessionId)
	if !ok || session.IndexStatus == store.IndexNotCreated {
		// Not an error: guide the user toward uploading without spending
		// a single provider call.
		return &dto.QueryResponse{
			Response:       msgRequiresUpload,
			RequiresUpload: true,
		}, nil
	}
	if session.IndexStatus == store.IndexCreating {
		return &dto.QueryResponse{Response: msgIndexBuilding}, nil
	}

	if c.qaProxy != nil {
		return c.qaProxy.Ask(ctx, request.SessionId, request.Question)
	}

	results, err := c.searchOrchestrator.Execute(ctx, session, request.Question)
	if err != nil {
		return nil, err
	}

	contextBlock := c.searchOrchestrator.FormatContext(results)
	generated := c.responseGenerator.Generate(ctx, request.Question, contextBlock)

	if generated.Degraded {
		// Queries never mutate session state; failures live in the
		// server log only.
		c.logger.Warn("chat", "degraded answer served", map[string]interface{}{
			"session_id": request.SessionId,
			"kind":       string(generated.Kind),
		})
	}

	return &dto.QueryResponse{
		Response: generated.Answer,
		Sources:  sourcesOf(results),
	}, nil
}

// Reset clears the session's document state. Unknown sessions report
// reset=false rather than an error so the call stays idempotent.
func (c *chatService) Reset(ctx context.Context, request *dto.ResetRequest) (*dto.ResetResponse, error) {
	ok := c.sessions.Reset(request.SessionId)
	return &dto.ResetResponse{SessionId: request.SessionId, Reset: ok}, nil
}

func (c *chatService) Status(ctx context.Context, sessionId string) (*dto.StatusResponse, error) {
	res := &dto.StatusResponse{
		Status:   "ok",
		Uptime:   time.Since(c.startedAt).Round(time.Second).String(),
		Sessions: c.sessions.Len(),
	}
	if sessionId == "" {
		return res, nil
	}

	session, ok := c.sessions.Get(sessionId)
	if !ok {
		res.Session = &dto.SessionStatusDTO{Exists: false}
		return res, nil
	}

	errs := make([]dto.SessionErrorDTO, 0, len(session.Errors))
	for _, e := range session.Errors {
		errs = append(errs, dto.SessionErrorDTO{Type: e.Type, Message: e.Message, Timestamp: e.Timestamp})
	}
	lastAccessed := session.LastAccessedAt
	res.Session = &dto.SessionStatusDTO{
		Exists:        true,
		SessionId:     session.ID,
		IndexStatus:   string(session.IndexStatus),
		DocumentName:  session.DocumentName,
		ChunkCount:    len(session.Chunks),
		IndexedChunks: session.IndexedChunks,
		IndexComplete: session.IndexComplete,
		LastAccessed:  &lastAccessed,
		Errors:        errs,
	}
	return res, nil
}

func (c *chatService) publishIngested(sessionId string, result *ingest.Result) {
	if c.publisher == nil {
		return
	}
	evt := events.NewDocumentIngested(sessionId, result.DocumentName, string(result.Status), result.ChunkCount, result.IndexedChunks)
	payload, err := json.Marshal(evt.Payload())
	if err != nil {
		c.logger.Error("chat", "failed to marshal ingestion event", map[string]interface{}{"error": err.Error()})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := c.publisher.Publish(events.TopicDocumentIngested, msg); err != nil {
		// The event stream is advisory; the upload already succeeded.
		c.logger.Warn("chat", "failed to publish ingestion event", map[string]interface{}{"error": err.Error()})
	}
}

func sourcesOf(results []search.Result) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range results {
		if r.Source != "" && !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}
	return sources
}
