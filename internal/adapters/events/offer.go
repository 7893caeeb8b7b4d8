package events

import "github.com/zatekoja/storefront-catalog/internal/domain/entities"

// offer queues event for a subscriber without blocking. When the subscriber
// is full its oldest queued event is evicted, so the latest session state is
// never the one lost. It reports whether an event had to be evicted.
func offer(subscriber chan *entities.CatalogEvent, event *entities.CatalogEvent) bool {
	select {
	case subscriber <- event:
		return false
	default:
	}

	select {
	case <-subscriber:
	default:
	}
	select {
	case subscriber <- event:
	default:
	}
	return true
}
