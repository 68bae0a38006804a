// Package client holds the coordination state machines behind the guest
// chat widget and the admin console: the widget session, the notification
// hub and the conversation list/thread. They talk to the backend through
// the narrow API and Channel interfaces so the views that render them stay
// free of transport concerns.
package client

import (
	"context"
	"encoding/json"

	"resort-booking-demo/backend/internal/models"
)

// API is the REST surface the widget and the admin console consume.
type API interface {
	// EnsureConversation returns the caller's conversation, creating it on
	// first use, together with the stored history.
	EnsureConversation(ctx context.Context, displayName string) (string, []models.Message, error)
	// UnreadCount returns the total number of unread guest messages.
	UnreadCount(ctx context.Context) (int, error)
	// Conversations lists conversation summaries, most recent first.
	Conversations(ctx context.Context) ([]models.ConversationSummary, error)
	// Messages returns a conversation's history and marks it read.
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	// Reply stores an admin reply and returns it as persisted.
	Reply(ctx context.Context, conversationID, text string) (*models.Message, error)
}

// Event is one realtime frame as delivered to a channel consumer.
type Event struct {
	Name string
	Data json.RawMessage
}

// Channel is a single realtime connection. The handle is owned exclusively
// by the component that dialed it; tearing the component down closes the
// channel rather than leaving a shared connection half-subscribed.
type Channel interface {
	// Emit sends one client frame.
	Emit(event string, payload interface{}) error
	// Events delivers server frames until the channel closes.
	Events() <-chan Event
	Close() error
}

// Dialer opens realtime channels.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}
