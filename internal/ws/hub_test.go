package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/repository"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsEnv struct {
	server *httptest.Server
	jwt    *jwt.Service
	chat   *service.ChatService
	bus    *events.Broadcaster
}

func newWsEnv(t *testing.T, options ...HubOptions) *wsEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBroadcaster(nil)
	t.Cleanup(bus.Close)
	chat := service.NewChatService(
		repository.NewMemoryConversationRepository(),
		repository.NewMemoryMessageRepository(),
		bus, nil, service.DefaultChatServiceOptions(), nil,
	)
	jwtService := jwt.NewService("test-secret", time.Hour)

	hub := NewHub(chat, bus, nil, options...)
	go hub.Run()

	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, jwtService, c)
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return &wsEnv{server: server, jwt: jwtService, chat: chat, bus: bus}
}

func (e *wsEnv) dial(t *testing.T, userID uint, role jwt.Role) *websocket.Conn {
	t.Helper()
	token, err := e.jwt.GenerateToken(userID, "user@example.com", role)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: data}))
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame.Event, frame.Data
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	env := newWsEnv(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestUserMessageIsPersistedAndEchoed(t *testing.T) {
	env := newWsEnv(t)

	conv, _, err := env.chat.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "user:join", map[string]string{"conversationId": conv.ID})

	// Joining is acknowledged implicitly: the first echo proves membership.
	send(t, conn, "user:message", map[string]string{
		"conversationId": conv.ID,
		"text":           "is the pool open?",
	})

	event, data := readFrame(t, conn)
	require.Equal(t, events.TypeMessageNew, event)

	var msg models.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "is the pool open?", msg.Text)
	assert.Equal(t, models.SenderUser, msg.SenderType)
	assert.Equal(t, "7", msg.SenderID)
	assert.NotEmpty(t, msg.ID)

	history, err := env.chat.History(conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestGuestCannotJoinForeignConversation(t *testing.T) {
	env := newWsEnv(t)

	conv, _, err := env.chat.EnsureConversation(8, "Grace")
	require.NoError(t, err)

	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "user:join", map[string]string{"conversationId": conv.ID})

	event, data := readFrame(t, conn)
	assert.Equal(t, "error", event)
	assert.Contains(t, string(data), "not your conversation")
}

func TestGuestCannotMessageForeignConversation(t *testing.T) {
	env := newWsEnv(t)

	foreign, _, err := env.chat.EnsureConversation(8, "Grace")
	require.NoError(t, err)

	// No join required: the message path must enforce ownership on its own.
	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "user:message", map[string]string{
		"conversationId": foreign.ID,
		"text":           "injected into someone else's thread",
	})

	event, data := readFrame(t, conn)
	assert.Equal(t, "error", event)
	assert.Contains(t, string(data), "not your conversation")

	history, err := env.chat.History(foreign.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	count, err := env.chat.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAdminJoinNotificationsRequiresAdminRole(t *testing.T) {
	env := newWsEnv(t)

	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "admin:join:notifications", struct{}{})

	event, data := readFrame(t, conn)
	assert.Equal(t, "error", event)
	assert.Contains(t, string(data), "admin role required")
}

func TestAdminReceivesUnreadUpdates(t *testing.T) {
	env := newWsEnv(t)

	conv, _, err := env.chat.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	adminConn := env.dial(t, 2, jwt.RoleAdmin)
	send(t, adminConn, "admin:join:notifications", struct{}{})

	// Give the subscription a moment to land before publishing.
	time.Sleep(50 * time.Millisecond)

	_, err = env.chat.AppendMessage(service.AppendParams{
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		SenderID:       "7",
		Text:           "hello",
	})
	require.NoError(t, err)

	event, data := readFrame(t, adminConn)
	require.Equal(t, events.TypeChatNewMessage, event)

	var update events.UnreadUpdate
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, 1, update.UnreadCount)
}

func TestSenderSpoofingIsDemoted(t *testing.T) {
	env := newWsEnv(t)

	conv, _, err := env.chat.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "user:join", map[string]string{"conversationId": conv.ID})
	send(t, conn, "user:message", map[string]string{
		"conversationId": conv.ID,
		"senderType":     "admin",
		"senderId":       "999",
		"text":           "free upgrades for everyone",
	})

	event, data := readFrame(t, conn)
	require.Equal(t, events.TypeMessageNew, event)

	var msg models.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, models.SenderUser, msg.SenderType)
	assert.Equal(t, "7", msg.SenderID)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	env := newWsEnv(t, HubOptions{MaxMessageBytes: 256})

	conv, _, err := env.chat.EnsureConversation(7, "Ada")
	require.NoError(t, err)

	conn := env.dial(t, 7, jwt.RoleGuest)
	send(t, conn, "user:message", map[string]string{
		"conversationId": conv.ID,
		"text":           strings.Repeat("a", 1024),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	assert.Error(t, conn.ReadJSON(&frame))
}
