package entities

import (
	"time"

	"github.com/google/uuid"
)

// CatalogEventType represents the type of catalog session event
type CatalogEventType string

const (
	CatalogEventSessionCreated CatalogEventType = "session_created"
	CatalogEventStateChanged   CatalogEventType = "state_changed"
	CatalogEventSessionClosed  CatalogEventType = "session_closed"
)

// CatalogEvent is published whenever a catalog session changes state
type CatalogEvent struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	View      string           `json:"view"`
	EventType CatalogEventType `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Snapshot  *CatalogSnapshot `json:"snapshot,omitempty"`
}

// NewCatalogEvent creates a new catalog event
func NewCatalogEvent(sessionID, view string, eventType CatalogEventType, snapshot *CatalogSnapshot) *CatalogEvent {
	return &CatalogEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		View:      view,
		EventType: eventType,
		Timestamp: time.Now(),
		Snapshot:  snapshot,
	}
}
