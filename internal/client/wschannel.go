package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebsocketDialer dials the realtime endpoint with a bearer token.
type WebsocketDialer struct {
	// URL is the ws endpoint, e.g. "ws://localhost:8080/ws".
	URL   string
	Token string
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Channel, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("token", d.Token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	ch := &websocketChannel{
		conn:   conn,
		events: make(chan Event, 64),
	}
	go ch.readLoop()
	return ch, nil
}

type websocketChannel struct {
	conn   *websocket.Conn
	events chan Event

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *websocketChannel) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(wireFrame{Event: event, Data: data})
}

func (c *websocketChannel) Events() <-chan Event {
	return c.events
}

func (c *websocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *websocketChannel) readLoop() {
	defer close(c.events)
	for {
		var frame wireFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		c.events <- Event{Name: frame.Event, Data: frame.Data}
	}
}
