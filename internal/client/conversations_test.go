package client

import (
	"context"
	"testing"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRefreshReplacesItems(t *testing.T) {
	api := &fakeAPI{conversations: []models.ConversationSummary{
		{ID: "c2", DisplayName: "Grace", IsUnread: true, UnreadCount: 2},
		{ID: "c1", DisplayName: "Ada"},
	}}
	list := NewConversationList(api, nil)

	require.NoError(t, list.Refresh(context.Background()))
	items := list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "c2", items[0].ID)
	assert.Equal(t, 1, api.listCalls)

	require.NoError(t, list.Refresh(context.Background()))
	assert.Equal(t, 2, api.listCalls)
}

func TestSelectClearsUnreadOptimistically(t *testing.T) {
	api := &fakeAPI{conversations: []models.ConversationSummary{
		{ID: "c1", DisplayName: "Ada", IsUnread: true, UnreadCount: 3},
	}}
	list := NewConversationList(api, nil)
	require.NoError(t, list.Refresh(context.Background()))

	list.Select("c1")

	item := list.Items()[0]
	assert.False(t, item.IsUnread)
	assert.Equal(t, 0, item.UnreadCount)
}

func TestThreadOpenFetchesHistoryAndJoins(t *testing.T) {
	api := &fakeAPI{messages: map[string][]models.Message{
		"c1": {
			{ID: "m1", ConversationID: "c1", SenderType: models.SenderUser, Text: "hi", CreatedAt: time.Unix(1, 0)},
			{ID: "m2", ConversationID: "c1", SenderType: models.SenderAdmin, Text: "hello", CreatedAt: time.Unix(2, 0)},
		},
	}}
	dialer := &fakeDialer{}
	thread := NewThread(api, dialer, "c1", nil)
	t.Cleanup(thread.Close)

	require.NoError(t, thread.Open(context.Background()))

	require.Len(t, thread.Messages(), 2)
	assert.Equal(t, []string{"admin:join"}, dialer.last().emittedNames())
}

func TestThreadMergesReplyWithRealtimeEcho(t *testing.T) {
	api := &fakeAPI{messages: map[string][]models.Message{"c1": nil}}
	dialer := &fakeDialer{}
	thread := NewThread(api, dialer, "c1", nil)
	t.Cleanup(thread.Close)
	require.NoError(t, thread.Open(context.Background()))

	reply, err := thread.Reply(context.Background(), "the pool is open")
	require.NoError(t, err)
	require.Len(t, thread.Messages(), 1)

	// The room echoes the stored reply with the same id.
	dialer.last().push(t, events.TypeMessageNew, *reply)

	time.Sleep(20 * time.Millisecond)
	messages := thread.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, reply.ID, messages[0].ID)
}

func TestThreadOrdersMergedMessagesByTime(t *testing.T) {
	api := &fakeAPI{messages: map[string][]models.Message{
		"c1": {
			{ID: "m2", ConversationID: "c1", SenderType: models.SenderAdmin, Text: "second", CreatedAt: time.Unix(2, 0)},
		},
	}}
	dialer := &fakeDialer{}
	thread := NewThread(api, dialer, "c1", nil)
	t.Cleanup(thread.Close)
	require.NoError(t, thread.Open(context.Background()))

	dialer.last().push(t, events.TypeMessageNew, models.Message{
		ID: "m1", ConversationID: "c1", SenderType: models.SenderUser, Text: "first", CreatedAt: time.Unix(1, 0),
	})

	assert.Eventually(t, func() bool {
		return len(thread.Messages()) == 2
	}, time.Second, 5*time.Millisecond)

	messages := thread.Messages()
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestThreadCloseStopsConsuming(t *testing.T) {
	api := &fakeAPI{messages: map[string][]models.Message{"c1": nil}}
	dialer := &fakeDialer{}
	thread := NewThread(api, dialer, "c1", nil)
	require.NoError(t, thread.Open(context.Background()))

	thread.Close()
	assert.True(t, dialer.last().isClosed())
}
