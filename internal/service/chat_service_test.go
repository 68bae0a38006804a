package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUnreadCache struct {
	mu          sync.Mutex
	value       int
	set         bool
	invalidated int
}

func (c *recordingUnreadCache) SetUnreadTotal(ctx context.Context, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = count
	c.set = true
	return nil
}

func (c *recordingUnreadCache) UnreadTotal(ctx context.Context) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

func (c *recordingUnreadCache) InvalidateUnreadTotal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = false
	c.invalidated++
	return nil
}

func newTestChatService(t *testing.T) (*ChatService, *repository.MemoryConversationRepository, *recordingUnreadCache, *events.Broadcaster) {
	t.Helper()
	conversations := repository.NewMemoryConversationRepository()
	unread := &recordingUnreadCache{}
	bus := events.NewBroadcaster(nil)
	t.Cleanup(bus.Close)
	svc := NewChatService(conversations, repository.NewMemoryMessageRepository(), bus, unread, DefaultChatServiceOptions(), nil)
	return svc, conversations, unread, bus
}

func waitForEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestEnsureConversationIdempotent(t *testing.T) {
	svc, _, _, _ := newTestChatService(t)

	first, history, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)
	assert.Empty(t, history)

	second, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, _, err := svc.EnsureConversation(8, "Grace")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestAppendMessagePublishesAndCounts(t *testing.T) {
	svc, conversations, unread, bus := newTestChatService(t)

	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	room, _ := bus.Subscribe(context.Background(), events.ConversationTopic(conv.ID))
	admin, _ := bus.Subscribe(context.Background(), events.TopicAdminNotifications)

	msg, err := svc.AppendMessage(AppendParams{
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		SenderID:       "7",
		Text:           "is the pool open?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	_, err = uuid.Parse(msg.ID)
	assert.NoError(t, err)

	echo := waitForEvent(t, room)
	assert.Equal(t, events.TypeMessageNew, echo.Type)
	assert.Equal(t, msg.ID, echo.Payload.(models.Message).ID)

	update := waitForEvent(t, admin)
	assert.Equal(t, events.TypeChatNewMessage, update.Type)
	assert.Equal(t, 1, update.Payload.(events.UnreadUpdate).UnreadCount)

	stored, err := conversations.GetByID(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnreadCount)
	assert.Equal(t, "is the pool open?", stored.LastMessage)

	cached, ok := unread.UnreadTotal(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 1, cached)
}

func TestAppendMessageKeepsClientAssignedID(t *testing.T) {
	svc, _, _, _ := newTestChatService(t)
	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	clientID := uuid.New().String()
	msg, err := svc.AppendMessage(AppendParams{
		ID:             clientID,
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Text:           "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, clientID, msg.ID)
}

func TestAppendMessageValidation(t *testing.T) {
	svc, _, _, _ := newTestChatService(t)
	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	_, err = svc.AppendMessage(AppendParams{ConversationID: conv.ID, Sender: "system", Text: "x"})
	assert.Error(t, err, "unknown sender type")

	_, err = svc.AppendMessage(AppendParams{ConversationID: conv.ID, Sender: models.SenderUser})
	assert.Error(t, err, "empty body")

	_, err = svc.AppendMessage(AppendParams{ConversationID: conv.ID, Sender: models.SenderUser, Text: "hi", ID: "not-a-uuid"})
	assert.Error(t, err, "malformed id")

	_, err = svc.AppendMessage(AppendParams{ConversationID: "missing", Sender: models.SenderUser, Text: "hi"})
	assert.Error(t, err, "unknown conversation")
}

func TestAdminReplyDoesNotRaiseUnread(t *testing.T) {
	svc, conversations, _, bus := newTestChatService(t)
	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	admin, _ := bus.Subscribe(context.Background(), events.TopicAdminNotifications)

	reply, err := svc.SendAdminReply(conv.ID, "2", "the pool is open until 10pm")
	require.NoError(t, err)
	assert.Equal(t, models.SenderAdmin, reply.SenderType)

	stored, err := conversations.GetByID(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount)

	select {
	case ev := <-admin:
		t.Fatalf("admin reply must not publish %q", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHistoryReturnsReplySameIDAsEcho(t *testing.T) {
	svc, _, _, bus := newTestChatService(t)
	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	room, _ := bus.Subscribe(context.Background(), events.ConversationTopic(conv.ID))

	reply, err := svc.SendAdminReply(conv.ID, "2", "hello")
	require.NoError(t, err)

	echo := waitForEvent(t, room)
	assert.Equal(t, reply.ID, echo.Payload.(models.Message).ID)

	history, err := svc.History(conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, reply.ID, history[0].ID)
}

func TestMarkReadClearsCounters(t *testing.T) {
	svc, conversations, unread, _ := newTestChatService(t)
	conv, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	_, err = svc.AppendMessage(AppendParams{ConversationID: conv.ID, Sender: models.SenderUser, Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), conv.ID))

	stored, err := conversations.GetByID(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount)

	unread.mu.Lock()
	invalidated := unread.invalidated
	unread.mu.Unlock()
	assert.Equal(t, 1, invalidated)

	count, err := svc.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUnreadCountPrefersCache(t *testing.T) {
	svc, _, unread, _ := newTestChatService(t)

	require.NoError(t, unread.SetUnreadTotal(context.Background(), 42))

	count, err := svc.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestListConversationsSummaries(t *testing.T) {
	svc, _, _, _ := newTestChatService(t)

	first, _, err := svc.EnsureConversation(7, "Ada")
	require.NoError(t, err)
	second, _, err := svc.EnsureConversation(8, "Grace")
	require.NoError(t, err)

	_, err = svc.AppendMessage(AppendParams{ConversationID: first.ID, Sender: models.SenderUser, Text: "older"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.AppendMessage(AppendParams{ConversationID: second.ID, Sender: models.SenderUser, Text: "newer"})
	require.NoError(t, err)

	summaries, err := svc.ListConversations()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)
	assert.True(t, summaries[0].IsUnread)
	assert.Equal(t, "newer", summaries[0].LastMessage)
}
