package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed before an event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx := context.Background()
	ch1, _ := b.Subscribe(ctx, "conv:abc")
	ch2, _ := b.Subscribe(ctx, "conv:abc")
	other, _ := b.Subscribe(ctx, "conv:xyz")

	b.Publish("conv:abc", Event{Type: TypeMessageNew, Payload: "hello"})

	assert.Equal(t, TypeMessageNew, receiveEvent(t, ch1).Type)
	assert.Equal(t, TypeMessageNew, receiveEvent(t, ch2).Type)

	select {
	case ev := <-other:
		t.Fatalf("unrelated topic received %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, id := b.Subscribe(context.Background(), "conv:abc")
	b.Unsubscribe("conv:abc", id)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	assert.Equal(t, 0, b.SubscriberCount("conv:abc"))
}

func TestContextCancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	b.Subscribe(ctx, "conv:abc")
	require.Equal(t, 1, b.SubscriberCount("conv:abc"))

	cancel()

	assert.Eventually(t, func() bool {
		return b.SubscriberCount("conv:abc") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	b.Subscribe(context.Background(), "conv:abc")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish("conv:abc", Event{Type: TypeMessageNew, Payload: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
