package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/jwt"

	"github.com/gorilla/websocket"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one realtime connection. The connection handle is owned
// exclusively here; room membership is a bus subscription that is replaced
// when the client joins a different room and cancelled on disconnect.
type Client struct {
	ID     string
	UserID uint
	Role   jwt.Role
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub

	mu          sync.Mutex
	closed      bool
	roomCancel  context.CancelFunc // per-conversation room, replaced on join
	notifCancel context.CancelFunc // admin notifications group
}

type joinPayload struct {
	ConversationID string `json:"conversationId"`
}

type userMessagePayload struct {
	ID             string `json:"_id"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	Text           string `json:"text"`
}

// ReadPump reads frames from the peer until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	opts := c.Hub.opts
	c.Conn.SetReadLimit(opts.MaxMessageBytes)
	c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.LogError(err, "websocket read failed", "client_id", c.ID)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.Hub.log.LogError(err, "malformed frame", "client_id", c.ID)
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame Frame) {
	framesTotal.WithLabelValues(frame.Event).Inc()

	switch frame.Event {
	case "user:join":
		c.handleUserJoin(frame.Data)
	case "user:message":
		c.handleUserMessage(frame.Data)
	case "admin:join":
		c.handleAdminJoin(frame.Data)
	case "admin:join:notifications":
		c.handleAdminJoinNotifications()
	default:
		c.Hub.log.Warn("unknown frame event", "event", frame.Event, "client_id", c.ID)
	}
}

func (c *Client) handleUserJoin(data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError("conversationId is required")
		return
	}

	conv, err := c.Hub.chat.GetConversation(payload.ConversationID)
	if err != nil {
		c.sendError("conversation not found")
		return
	}
	// A guest may only join their own conversation
	if c.Role != jwt.RoleAdmin && (conv.GuestID == nil || *conv.GuestID != c.UserID) {
		c.sendError("not your conversation")
		return
	}

	c.joinRoom(payload.ConversationID)
}

func (c *Client) handleUserMessage(data json.RawMessage) {
	var payload userMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError("conversationId is required")
		return
	}

	conv, err := c.Hub.chat.GetConversation(payload.ConversationID)
	if err != nil {
		c.sendError("conversation not found")
		return
	}
	// Same rule as user:join: a guest may only post into their own conversation
	if c.Role != jwt.RoleAdmin && (conv.GuestID == nil || *conv.GuestID != c.UserID) {
		c.sendError("not your conversation")
		return
	}

	sender := models.SenderType(payload.SenderType)
	if sender == "" {
		sender = models.SenderUser
	}
	// Only the admin console may speak as admin; everything else is a user message
	if sender == models.SenderAdmin && c.Role != jwt.RoleAdmin {
		sender = models.SenderUser
	}

	// The echo to the room includes this connection; the client's
	// idempotent append drops the duplicate. When the widget supplies the
	// id of its optimistic local append, the echo reuses it.
	// The sender identity comes from the validated token, never the payload.
	if _, err := c.Hub.chat.AppendMessage(service.AppendParams{
		ID:             payload.ID,
		ConversationID: payload.ConversationID,
		Sender:         sender,
		SenderID:       strconv.FormatUint(uint64(c.UserID), 10),
		Text:           payload.Text,
	}); err != nil {
		c.Hub.log.LogError(err, "message rejected", "client_id", c.ID, "conversation_id", payload.ConversationID)
		c.sendError("failed to send message")
	}
}

func (c *Client) handleAdminJoin(data json.RawMessage) {
	if c.Role != jwt.RoleAdmin {
		c.sendError("admin role required")
		return
	}

	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError("conversationId is required")
		return
	}

	c.joinRoom(payload.ConversationID)
}

func (c *Client) handleAdminJoinNotifications() {
	if c.Role != jwt.RoleAdmin {
		c.sendError("admin role required")
		return
	}

	c.mu.Lock()
	if c.notifCancel != nil {
		c.notifCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.notifCancel = cancel
	c.mu.Unlock()

	ch, _ := c.Hub.bus.Subscribe(ctx, events.TopicAdminNotifications)
	go c.forward(ch)
}

// joinRoom subscribes the connection to a conversation topic, replacing the
// previous room subscription.
func (c *Client) joinRoom(conversationID string) {
	c.mu.Lock()
	if c.roomCancel != nil {
		c.roomCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.roomCancel = cancel
	c.mu.Unlock()

	ch, _ := c.Hub.bus.Subscribe(ctx, events.ConversationTopic(conversationID))
	go c.forward(ch)

	c.Hub.log.Info("joined room", "client_id", c.ID, "conversation_id", conversationID)
}

// forward copies bus events to the peer until the subscription closes.
func (c *Client) forward(ch <-chan events.Event) {
	for ev := range ch {
		c.sendEvent(ev)
	}
}

func (c *Client) sendEvent(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.Hub.log.LogError(err, "failed to marshal event", "event", ev.Type)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.Hub.log.Warn("dropping event for slow client", "client_id", c.ID, "event", ev.Type)
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(events.Event{
		Type:    "error",
		Payload: map[string]string{"message": message},
	})
}

// teardown cancels the client's subscriptions and stops further sends.
// Must run before the hub closes the Send channel.
func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.roomCancel != nil {
		c.roomCancel()
		c.roomCancel = nil
	}
	if c.notifCancel != nil {
		c.notifCancel()
		c.notifCancel = nil
	}
}

// WritePump writes outgoing frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	opts := c.Hub.opts
	ticker := time.NewTicker(opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain queued messages as separate frames
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
