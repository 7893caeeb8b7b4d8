package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
)

// MemoryEventBus delivers events within a single process. It is used when
// Redis is disabled and in tests.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.CatalogEvent]struct{}
	closed      bool
	logger      zerolog.Logger
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string]map[chan *entities.CatalogEvent]struct{}),
		logger:      log.With().Str("component", "event_bus").Str("backend", "memory").Logger(),
	}
}

var _ providers.EventBus = (*MemoryEventBus)(nil)

// Publish fans the event out to the channel's current subscribers
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("event bus is closed")
	}
	for subscriber := range b.subscribers[channel] {
		if offer(subscriber, event) {
			b.logger.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, evicted oldest event")
		}
	}
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("event bus is closed")
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.CatalogEvent]struct{})
	}
	eventChan := make(chan *entities.CatalogEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, eventChan)
	}()
	return eventChan, nil
}

func (b *MemoryEventBus) removeSubscriber(channel string, eventChan chan *entities.CatalogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[channel]
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of a channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes every subscriber channel
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
