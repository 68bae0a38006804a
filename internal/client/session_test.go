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

func guestConfig() GuestSessionConfig {
	return GuestSessionConfig{DisplayName: "Ada", SenderID: "7"}
}

func TestOpenEnsuresOnceAndJoins(t *testing.T) {
	api := &fakeAPI{ensureID: "c1", ensureHistory: []models.Message{
		{ID: "m1", ConversationID: "c1", SenderType: models.SenderAdmin, Text: "welcome back"},
	}}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)

	require.NoError(t, session.Open(context.Background()))
	require.NoError(t, session.Open(context.Background()))

	assert.Equal(t, 1, api.ensureCalls)
	assert.Equal(t, "c1", session.ConversationID())
	require.Len(t, session.History(), 1)
	assert.Equal(t, []string{"user:join"}, dialer.last().emittedNames())
}

func TestOpenFailureLeavesSessionInert(t *testing.T) {
	api := &fakeAPI{ensureErr: assert.AnError}
	session := NewGuestSession(api, &fakeDialer{}, guestConfig(), nil)

	assert.Error(t, session.Open(context.Background()))
	assert.Empty(t, session.ConversationID())
	assert.ErrorIs(t, session.Send("hello"), ErrSessionClosed)
}

func TestIncomingAppendIsIdempotent(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))

	msg := models.Message{ID: "m1", ConversationID: "c1", SenderType: models.SenderAdmin, Text: "hello"}
	channel := dialer.last()
	channel.push(t, events.TypeMessageNew, msg)
	channel.push(t, events.TypeMessageNew, msg)

	assert.Eventually(t, func() bool {
		return len(session.History()) == 1
	}, time.Second, 5*time.Millisecond)

	// Give the duplicate a chance to land, then confirm nothing changed.
	time.Sleep(20 * time.Millisecond)
	history := session.History()
	require.Len(t, history, 1)
	assert.Equal(t, "m1", history[0].ID)
}

func TestSendAppendsLocallyAndEmits(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))

	require.NoError(t, session.Send("Hello"))

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.SenderUser, history[0].SenderType)
	assert.Equal(t, "Hello", history[0].Text)

	ack := history[1]
	assert.Equal(t, models.SenderBot, ack.SenderType)
	require.Len(t, ack.Segments, 3)
	assert.Equal(t, models.SegmentText, ack.Segments[0].Type)
	assert.Equal(t, models.SegmentImage, ack.Segments[1].Type)
	assert.Equal(t, models.SegmentLink, ack.Segments[2].Type)

	names := dialer.last().emittedNames()
	assert.Equal(t, []string{"user:join", "user:message"}, names)
}

func TestEchoOfOwnMessageDeduplicates(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))

	require.NoError(t, session.Send("Hello"))
	history := session.History()
	require.Len(t, history, 2)
	sent := history[0]

	dialer.last().push(t, events.TypeMessageNew, sent)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, session.History(), 2)
}

func TestAutoAckFiresAtMostOncePerSession(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	session := NewGuestSession(api, &fakeDialer{}, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))

	require.NoError(t, session.Send("one"))
	require.NoError(t, session.Send("two"))
	require.NoError(t, session.Send("three"))

	bots := 0
	for _, msg := range session.History() {
		if msg.SenderType == models.SenderBot {
			bots++
		}
	}
	assert.Equal(t, 1, bots)
	assert.Len(t, session.History(), 4)
}

func TestQuickReplyIsLocalOnly(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))

	require.NoError(t, session.SendQuickReply("hours"))

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.SenderUser, history[0].SenderType)
	assert.Equal(t, models.SenderBot, history[1].SenderType)

	// Only the join went over the wire.
	assert.Equal(t, []string{"user:join"}, dialer.last().emittedNames())
}

func TestQuickReplyCatalogRespectsMembership(t *testing.T) {
	guest := QuickReplies(false)
	member := QuickReplies(true)
	assert.Greater(t, len(member), len(guest))

	session := NewGuestSession(&fakeAPI{ensureID: "c1"}, &fakeDialer{}, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))
	assert.Error(t, session.SendQuickReply("perks"), "member-only entry hidden from guests")
}

func TestLogoutClearsStateAndClosesChannel(t *testing.T) {
	api := &fakeAPI{ensureID: "c1"}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)
	require.NoError(t, session.Open(context.Background()))
	require.NoError(t, session.Send("Hello"))

	session.Logout()

	assert.Empty(t, session.ConversationID())
	assert.Empty(t, session.History())
	assert.True(t, dialer.last().isClosed())
	assert.ErrorIs(t, session.Send("again"), ErrSessionClosed)

	// Logging back in runs a fresh ensure cycle, and the ack guard is reset.
	require.NoError(t, session.Open(context.Background()))
	assert.Equal(t, 2, api.ensureCalls)
	require.NoError(t, session.Send("back"))

	bots := 0
	for _, msg := range session.History() {
		if msg.SenderType == models.SenderBot {
			bots++
		}
	}
	assert.Equal(t, 1, bots)
}

func TestStaleEnsureResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{ensureID: "c1", ensureGate: gate}
	dialer := &fakeDialer{}
	session := NewGuestSession(api, dialer, guestConfig(), nil)

	done := make(chan error, 1)
	go func() {
		done <- session.Open(context.Background())
	}()

	// Tear down while the ensure call is still in flight.
	time.Sleep(10 * time.Millisecond)
	session.Logout()
	close(gate)

	require.NoError(t, <-done)
	assert.Empty(t, session.ConversationID())
	assert.Empty(t, session.History())
	if ch := dialer.last(); ch != nil {
		assert.True(t, ch.isClosed())
	}
}
