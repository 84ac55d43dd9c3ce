package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure into the fixed error taxonomy used across
// the ingestion and query pipelines.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindTextExtraction    Kind = "TEXT_EXTRACTION_ERROR"
	KindDocumentSplitting Kind = "DOCUMENT_SPLITTING_ERROR"
	KindVectorStore       Kind = "VECTORSTORE_ERROR"
	KindSearch            Kind = "SEARCH_ERROR"
	KindLLM               Kind = "LLM_ERROR"
	KindTimeout           Kind = "TIMEOUT_ERROR"
	KindSession           Kind = "SESSION_ERROR"
	KindAPI               Kind = "API_ERROR"
)

// AppError carries a taxonomy kind plus a user-presentable message.
// The wrapped error keeps the raw cause for server-side logs only.
type AppError struct {
	Kind    Kind
	Message string
	Status  int // optional HTTP status override (e.g. 429 for quota)
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without an underlying cause.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an AppError around an underlying cause.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// WithStatus sets an explicit HTTP status for this error.
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// KindOf extracts the taxonomy kind from any error chain.
// Unclassified errors report as empty string.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the response status class:
// 400 validation, 429 rate-limited, 503 service unavailable, 504 timeout,
// 500 for everything else. An explicit Status on the AppError wins.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	if appErr.Status != 0 {
		return appErr.Status
	}
	switch appErr.Kind {
	case KindValidation, KindTextExtraction, KindDocumentSplitting:
		return fiber.StatusBadRequest
	case KindAPI:
		return fiber.StatusServiceUnavailable
	case KindTimeout:
		return fiber.StatusGatewayTimeout
	case KindSession:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
