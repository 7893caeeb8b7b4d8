package providers

import (
	"context"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelCatalogUpdates is the channel for all session updates
	EventChannelCatalogUpdates = "catalog:updates"

	// EventChannelSessionPrefix is the prefix for session-specific channels
	EventChannelSessionPrefix = "catalog:session:"
)

// GetSessionChannel returns the channel name for a specific session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
