package dto

import "time"

type UploadResponse struct {
	SessionId     string `json:"session_id"`
	DocumentName  string `json:"document_name"`
	IndexStatus   string `json:"index_status"`
	ChunkCount    int    `json:"chunk_count"`
	IndexedChunks int    `json:"indexed_chunks"`
	IndexComplete bool   `json:"index_complete"`
	Warning       string `json:"warning,omitempty"`
}

type QueryRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required,max=2000"`
}

type QueryResponse struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	Notice         string   `json:"notice,omitempty"`
	RequiresUpload bool     `json:"requires_upload,omitempty"`
}

type ResetRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type ResetResponse struct {
	SessionId string `json:"session_id"`
	Reset     bool   `json:"reset"`
}

type SessionErrorDTO struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse doubles as a liveness probe (no session_id) and a session
// inspector (session_id given). Session is nil in the liveness case.
type StatusResponse struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Sessions int               `json:"sessions"`
	Session  *SessionStatusDTO `json:"session,omitempty"`
}

type SessionStatusDTO struct {
	Exists        bool              `json:"exists"`
	SessionId     string            `json:"session_id,omitempty"`
	IndexStatus   string            `json:"index_status,omitempty"`
	DocumentName  string            `json:"document_name,omitempty"`
	ChunkCount    int               `json:"chunk_count"`
	IndexedChunks int               `json:"indexed_chunks"`
	IndexComplete bool              `json:"index_complete"`
	LastAccessed  *time.Time        `json:"last_accessed,omitempty"`
	Errors        []SessionErrorDTO `json:"errors,omitempty"`
}
