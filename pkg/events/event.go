// Package events defines the in-process events published on the message
// bus. Consumers only see the Event contract, never concrete service types.
package events

import "time"

// Topics for the in-process bus.
const (
	TopicDocumentIngested = "document.ingested"
)

// Event is the contract every published event satisfies.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_INGESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain struct implementation used by all publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewDocumentIngested records the outcome of one ingestion run, successful
// or degraded.
func NewDocumentIngested(sessionID, document, status string, chunkCount, indexedChunks int) BaseEvent {
	return BaseEvent{
		Type: "DOCUMENT_INGESTED",
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"document":       document,
			"index_status":   status,
			"chunk_count":    chunkCount,
			"indexed_chunks": indexedChunks,
		},
		OccurredAt: time.Now(),
	}
}
