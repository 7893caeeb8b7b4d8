package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/application/services"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
)

// SSEHandler streams catalog session state transitions as Server-Sent Events
type SSEHandler struct {
	sessions  *services.SessionService
	heartbeat time.Duration
	clients   map[string]int // session id -> open streams
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(sessions *services.SessionService) *SSEHandler {
	return &SSEHandler{
		sessions:  sessions,
		heartbeat: 30 * time.Second,
		clients:   make(map[string]int),
	}
}

// StreamSession handles GET /api/sessions/{id}/stream
func (h *SSEHandler) StreamSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	ctx := observability.WithLogFields(r.Context(), "session_id", sessionID)
	r = r.WithContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before reading the current state: a fetch that settles in
	// between is then either in the snapshot or queued as an event.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := h.sessions.Subscribe(streamCtx, sessionID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	current, err := h.sessions.Get(ctx, sessionID, false)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.registerClient(sessionID)
	defer h.unregisterClient(sessionID)

	h.sendEvent(w, "connected", current)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			observability.LoggerFromContext(ctx).Debug().Msg("Client disconnected from catalog stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			// Fetches older than the connected snapshot may still be in flight
			if event == nil || (event.Snapshot != nil && event.Snapshot.Generation < current.Generation) {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
			if event.EventType == entities.CatalogEventSessionClosed {
				return
			}
		}
	}
}

// registerClient counts a client stream for a session
func (h *SSEHandler) registerClient(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sessionID]++
	log.Debug().Str("session_id", sessionID).Int("streams", h.clients[sessionID]).Msg("Catalog stream opened")
}

// unregisterClient releases a client stream
func (h *SSEHandler) unregisterClient(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] <= 1 {
		delete(h.clients, sessionID)
		return
	}
	h.clients[sessionID]--
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected streams
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}
