package events

import (
	"context"
	"sync"

	"resort-booking-demo/backend/pkg/logger"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber. A slow
// subscriber drops events rather than blocking the publisher.
const subscriberBufferSize = 64

// Broadcaster is an in-memory topic bus connecting the chat service, the
// notifier and the websocket hub. It replaces the ad hoc window-level custom
// events of the original web client with one explicit publish/subscribe
// service. Topics are per-conversation rooms plus the global admin
// notifications topic.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // topic -> subID -> ch
	log         *logger.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil to use the global logger.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		log:         log,
	}
}

// Subscribe registers a subscriber on a topic. It returns the receiving
// channel and a subscription ID for Unsubscribe. The subscription is cleaned
// up automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan Event)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	b.log.Debug("subscriber added", "topic", topic, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish sends an event to every subscriber of the topic. Non-blocking:
// the event is dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(topic string, event Event) {
	// Sends stay under the read lock so Unsubscribe cannot close a channel
	// mid-send. They never block, so the lock is held only briefly.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
			b.log.Debug("dropped event for slow subscriber",
				"topic", topic,
				"event", event.Type,
			)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
}

// SubscriberCount returns the number of live subscriptions on a topic.
func (b *Broadcaster) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, topic)
	}
}
