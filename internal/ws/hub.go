package ws

import (
	"net/http"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/jwt"
	"resort-booking-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HubOptions tunes the per-connection socket behaviour.
type HubOptions struct {
	// WriteWait is the time allowed to write a message to the peer
	WriteWait time.Duration

	// PongWait is the time allowed to read the next pong from the peer;
	// pings go out at 90% of this interval
	PongWait time.Duration

	// MaxMessageBytes is the maximum frame size accepted from the peer
	MaxMessageBytes int64
}

// DefaultHubOptions returns the defaults used when no options are given.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageBytes: 64 * 1024,
	}
}

func (o HubOptions) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks are handled by the reverse proxy
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Hub tracks every live realtime connection. Room fan-out happens on the
// event bus; the hub only owns connection lifecycle.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	chat       *service.ChatService
	bus        *events.Broadcaster
	log        *logger.Logger
	opts       HubOptions
}

func NewHub(chat *service.ChatService, bus *events.Broadcaster, log *logger.Logger, options ...HubOptions) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	opts := DefaultHubOptions()
	if len(options) > 0 {
		opts = options[0]
		defaults := DefaultHubOptions()
		if opts.WriteWait <= 0 {
			opts.WriteWait = defaults.WriteWait
		}
		if opts.PongWait <= 0 {
			opts.PongWait = defaults.PongWait
		}
		if opts.MaxMessageBytes <= 0 {
			opts.MaxMessageBytes = defaults.MaxMessageBytes
		}
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		chat:       chat,
		bus:        bus,
		log:        log,
		opts:       opts,
	}
}

// Run processes connection registration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			connectedClients.Inc()
			h.log.Info("client registered", "client_id", client.ID, "role", string(client.Role))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.teardown()
				close(client.Send)
				connectedClients.Dec()
				h.log.Info("client unregistered", "client_id", client.ID)
			}
		}
	}
}

// ServeWs authenticates the request, upgrades the connection and starts the
// client pumps. The token travels as a query parameter because browser
// websocket clients cannot set headers.
func ServeWs(hub *Hub, jwtService *jwt.Service, c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "websocket upgrade failed")
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Role:   claims.Role,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
	}

	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
