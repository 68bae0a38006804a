package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"resort-booking-demo/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type emittedFrame struct {
	name    string
	payload interface{}
}

type fakeChannel struct {
	mu      sync.Mutex
	events  chan Event
	emitted []emittedFrame
	closed  bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan Event, 16)}
}

func (c *fakeChannel) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	c.emitted = append(c.emitted, emittedFrame{name: event, payload: payload})
	return nil
}

func (c *fakeChannel) Events() <-chan Event {
	return c.events
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// push delivers one server frame to the consumer.
func (c *fakeChannel) push(t *testing.T, name string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	c.events <- Event{Name: name, Data: data}
}

func (c *fakeChannel) emittedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.emitted))
	for _, frame := range c.emitted {
		names = append(names, frame.name)
	}
	return names
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	err      error
}

func (d *fakeDialer) Dial(ctx context.Context) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	ch := newFakeChannel()
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels)
}

type fakeAPI struct {
	mu            sync.Mutex
	ensureCalls   int
	ensureID      string
	ensureHistory []models.Message
	ensureErr     error
	ensureGate    chan struct{}

	unread    int
	unreadErr error

	conversations []models.ConversationSummary
	listCalls     int

	messages map[string][]models.Message

	replies  []models.Message
	replyErr error
}

func (a *fakeAPI) EnsureConversation(ctx context.Context, displayName string) (string, []models.Message, error) {
	a.mu.Lock()
	a.ensureCalls++
	gate := a.ensureGate
	id, history, err := a.ensureID, a.ensureHistory, a.ensureErr
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", nil, err
	}
	return id, history, nil
}

func (a *fakeAPI) UnreadCount(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unread, a.unreadErr
}

func (a *fakeAPI) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	return append([]models.ConversationSummary(nil), a.conversations...), nil
}

func (a *fakeAPI) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Message(nil), a.messages[conversationID]...), nil
}

func (a *fakeAPI) Reply(ctx context.Context, conversationID, text string) (*models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.replyErr != nil {
		return nil, a.replyErr
	}
	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderType:     models.SenderAdmin,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	a.replies = append(a.replies, msg)
	return &msg, nil
}
