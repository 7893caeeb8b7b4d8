package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
)

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := providers.GetSessionChannel("s1")
	events, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	other, err := bus.Subscribe(ctx, providers.GetSessionChannel("s2"))
	require.NoError(t, err)

	event := entities.NewCatalogEvent("s1", "shop", entities.CatalogEventStateChanged, nil)
	require.NoError(t, bus.Publish(ctx, channel, event))

	select {
	case got := <-events:
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "s1", got.SessionID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other:
		t.Fatal("event delivered to the wrong channel")
	default:
	}
}

func TestMemoryEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx, providers.EventChannelCatalogUpdates)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus()
	events, err := bus.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-events
	assert.False(t, ok)

	assert.Error(t, bus.Publish(context.Background(), "c", &entities.CatalogEvent{}))
	_, err = bus.Subscribe(context.Background(), "c")
	assert.Error(t, err)
}

func TestMemoryEventBus_FullSubscriberKeepsNewestEvent(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := providers.GetSessionChannel("s1")
	events, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	var last *entities.CatalogEvent
	for i := 0; i < subscriberBuffer+10; i++ {
		last = entities.NewCatalogEvent("s1", "shop", entities.CatalogEventStateChanged, nil)
		require.NoError(t, bus.Publish(ctx, channel, last))
	}

	var received []*entities.CatalogEvent
	for len(received) < subscriberBuffer {
		select {
		case event := <-events:
			received = append(received, event)
		case <-time.After(time.Second):
			t.Fatalf("only %d events queued", len(received))
		}
	}
	assert.Equal(t, last.ID, received[len(received)-1].ID)
}

func TestOffer_EvictsOldest(t *testing.T) {
	ch := make(chan *entities.CatalogEvent, 2)
	first := entities.NewCatalogEvent("s1", "shop", entities.CatalogEventStateChanged, nil)
	second := entities.NewCatalogEvent("s1", "shop", entities.CatalogEventStateChanged, nil)
	third := entities.NewCatalogEvent("s1", "shop", entities.CatalogEventStateChanged, nil)

	assert.False(t, offer(ch, first))
	assert.False(t, offer(ch, second))
	assert.True(t, offer(ch, third))

	assert.Equal(t, second.ID, (<-ch).ID)
	assert.Equal(t, third.ID, (<-ch).ID)
}
