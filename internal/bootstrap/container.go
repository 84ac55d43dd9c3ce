package bootstrap

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"doc-chat-be/internal/config"
	"doc-chat-be/internal/controller"
	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/internal/service"
	"doc-chat-be/pkg/embedding"
	"doc-chat-be/pkg/llm/factory"
	"doc-chat-be/pkg/rag/ingest"
	"doc-chat-be/pkg/rag/response"
	"doc-chat-be/pkg/rag/search"
	"doc-chat-be/pkg/store"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure main.go needs for lifecycle management
	Sessions *store.Store
	Logger   logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	// 3. AI providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.GoogleGeminiKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
		cfg.Ai.EmbedCacheTTL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	// The model client is built on first use; a misconfigured key shows up
	// as a typed error on the first query instead of a startup crash.
	llmProvider := factory.NewDeferredProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GoogleGeminiKey,
	)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Session storage
	sessions := store.NewStore(cfg.Session.IdleTTL)

	// 5. Pipeline + services
	pipeline := ingest.NewPipeline(embeddingProvider, sessions, sysLogger, ingest.Config{
		MaxUploadBytes:    cfg.Ingest.MaxUploadBytes,
		AllowedExtensions: cfg.Ingest.AllowedExtensions,
		MaxIndexedChunks:  cfg.Ingest.MaxIndexedChunks,
		MaxBatchRetries:   cfg.Ingest.MaxBatchRetries,
		BaseTimeout:       cfg.Ingest.BaseTimeout,
		TimeoutPerMB:      cfg.Ingest.TimeoutPerMB,
	})

	qaProxy := service.NewQAProxyClient(cfg.Proxy.QAEndpoint, cfg.Proxy.Timeout, sysLogger)
	if qaProxy != nil {
		log.Printf("[INFO] Query answering delegated to external QA proxy: %s", cfg.Proxy.QAEndpoint)
	}

	chatService := service.NewChatService(
		sessions,
		embeddingProvider,
		llmProvider,
		pipeline,
		search.Config{
			TopK:          cfg.Search.TopK,
			MinScore:      cfg.Search.MinScore,
			MinChunkLen:   cfg.Search.MinChunkLen,
			ContextBudget: cfg.Search.ContextBudget,
		},
		response.Config{
			Timeout:      cfg.Generation.Timeout,
			MaxAnswerLen: cfg.Generation.MaxAnswerLen,
		},
		qaProxy,
		pubSub,
		sysLogger,
	)

	consumerService := service.NewConsumerService(pubSub, sysLogger)

	// 6. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService),
		ConsumerService: consumerService,
		Sessions:        sessions,
		Logger:          sysLogger,
	}
}
