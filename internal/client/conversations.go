package client

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/pkg/logger"
)

// ConversationList is the admin's overview of guest conversations. Every
// new chat message triggers a full re-fetch rather than an incremental
// patch: the server already holds the recency ordering and unread flags,
// so re-fetching keeps them correct without client-side merge logic.
type ConversationList struct {
	api API
	log *logger.Logger

	mu    sync.Mutex
	items []models.ConversationSummary
}

func NewConversationList(api API, log *logger.Logger) *ConversationList {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ConversationList{api: api, log: log}
}

// Refresh replaces the list with the server's current view.
func (l *ConversationList) Refresh(ctx context.Context) error {
	items, err := l.api.Conversations(ctx)
	if err != nil {
		l.log.LogError(err, "conversation list fetch failed")
		return err
	}

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Select clears the conversation's unread indicator locally, before the
// server confirms, so the row does not flicker while the thread loads.
func (l *ConversationList) Select(conversationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == conversationID {
			l.items[i].IsUnread = false
			l.items[i].UnreadCount = 0
			return
		}
	}
}

// Items returns a copy of the current summaries.
func (l *ConversationList) Items() []models.ConversationSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ConversationSummary(nil), l.items...)
}

// Thread is one open conversation in the admin console. History comes from
// REST, live messages from the conversation's realtime room, and admin
// replies go out via REST; all three sources land in one list deduplicated
// by message id, so the realtime echo of an admin's own reply is dropped.
type Thread struct {
	api    API
	dialer Dialer
	log    *logger.Logger

	conversationID string

	mu       sync.Mutex
	gen      int
	channel  Channel
	messages []models.Message
}

func NewThread(api API, dialer Dialer, conversationID string, log *logger.Logger) *Thread {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Thread{api: api, dialer: dialer, conversationID: conversationID, log: log}
}

// Open fetches the history (marking the conversation read server-side) and
// joins the conversation's realtime room.
func (t *Thread) Open(ctx context.Context) error {
	history, err := t.api.Messages(ctx, t.conversationID)
	if err != nil {
		return err
	}

	channel, err := t.dialer.Dial(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	gen := t.gen
	t.messages = nil
	for _, msg := range history {
		t.insertLocked(msg)
	}
	t.channel = channel
	t.mu.Unlock()

	if err := channel.Emit("admin:join", map[string]string{"conversationId": t.conversationID}); err != nil {
		t.log.LogError(err, "room join emit failed", "conversation_id", t.conversationID)
	}
	go t.consume(channel, gen)
	return nil
}

// Reply sends an admin message through REST and appends the stored result.
// The room echo reuses the same id and deduplicates away.
func (t *Thread) Reply(ctx context.Context, text string) (*models.Message, error) {
	msg, err := t.api.Reply(ctx, t.conversationID, text)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.insertLocked(*msg)
	t.mu.Unlock()
	return msg, nil
}

// Messages returns a copy of the merged, time-ordered message list.
func (t *Thread) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Message(nil), t.messages...)
}

// Close leaves the room.
func (t *Thread) Close() {
	t.mu.Lock()
	t.gen++
	channel := t.channel
	t.channel = nil
	t.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
}

func (t *Thread) consume(channel Channel, gen int) {
	for ev := range channel.Events() {
		if ev.Name != events.TypeMessageNew {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			t.log.LogError(err, "malformed message event", "conversation_id", t.conversationID)
			continue
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.insertLocked(msg)
		t.mu.Unlock()
	}
}

// insertLocked merges one message in, keyed by id, keeping creation order.
func (t *Thread) insertLocked(msg models.Message) {
	for _, held := range t.messages {
		if held.ID == msg.ID {
			return
		}
	}
	t.messages = append(t.messages, msg)
	sort.SliceStable(t.messages, func(i, j int) bool {
		return t.messages[i].CreatedAt.Before(t.messages[j].CreatedAt)
	})
}
