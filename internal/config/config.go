package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Ai         AIConfig
	Ingest     IngestConfig
	Search     SearchConfig
	Generation GenerationConfig
	Proxy      ProxyConfig
	Session    SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	BodyLimitMB        int
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string // e.g. "llama3", "gemini-1.5-flash"
	GoogleGeminiKey   string
	EmbedCacheTTL     time.Duration
}

type IngestConfig struct {
	MaxUploadBytes    int
	AllowedExtensions []string
	MaxIndexedChunks  int
	MaxBatchRetries   int
	BaseTimeout       time.Duration
	TimeoutPerMB      time.Duration
}

type SearchConfig struct {
	TopK          int
	MinScore      float64
	MinChunkLen   int
	ContextBudget int // max runes handed to the generator
}

type GenerationConfig struct {
	Timeout      time.Duration
	MaxAnswerLen int
}

// ProxyConfig selects an external answering provider instead of the local
// pipeline. Leaving the endpoint empty keeps queries local; the two modes
// are mutually exclusive per deployment.
type ProxyConfig struct {
	QAEndpoint string
	Timeout    time.Duration
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 12),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
			GoogleGeminiKey:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			EmbedCacheTTL:     getEnvAsDuration("EMBED_CACHE_TTL", 30*time.Minute),
		},
		Ingest: IngestConfig{
			MaxUploadBytes:    getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", ".pdf,.txt,.md,.docx"),
			MaxIndexedChunks:  getEnvAsInt("MAX_INDEXED_CHUNKS", 300),
			MaxBatchRetries:   getEnvAsInt("MAX_BATCH_RETRIES", 3),
			BaseTimeout:       getEnvAsDuration("INGEST_BASE_TIMEOUT", 60*time.Second),
			TimeoutPerMB:      getEnvAsDuration("INGEST_TIMEOUT_PER_MB", 15*time.Second),
		},
		Search: SearchConfig{
			TopK:          getEnvAsInt("SEARCH_TOP_K", 3),
			MinScore:      getEnvAsFloat("SEARCH_MIN_SCORE", 0.3),
			MinChunkLen:   getEnvAsInt("SEARCH_MIN_CHUNK_LEN", 40),
			ContextBudget: getEnvAsInt("SEARCH_CONTEXT_BUDGET", 8000),
		},
		Generation: GenerationConfig{
			Timeout:      getEnvAsDuration("GENERATION_TIMEOUT", 30*time.Second),
			MaxAnswerLen: getEnvAsInt("GENERATION_MAX_ANSWER_LEN", 4000),
		},
		Proxy: ProxyConfig{
			QAEndpoint: getEnv("QA_PROXY_ENDPOINT", ""),
			Timeout:    getEnvAsDuration("QA_PROXY_TIMEOUT", 45*time.Second),
		},
		Session: SessionConfig{
			IdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
