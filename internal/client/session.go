package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/pkg/logger"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned when sending through a session that has no
// open channel, either because Open never succeeded or after Logout.
var ErrSessionClosed = errors.New("chat session is not open")

// GuestSession is the state behind the guest chat widget: one ensured
// conversation, its local history and the realtime channel feeding it.
//
// All state transitions are guarded by a generation counter. Open captures
// the generation before its network calls and discards the result if
// Logout bumped it in the meantime, so a slow ensure response cannot
// resurrect a conversation after the guest signed out.
type GuestSession struct {
	api    API
	dialer Dialer
	log    *logger.Logger

	displayName string
	senderID    string
	member      bool

	mu             sync.Mutex
	gen            int
	conversationID string
	history        []models.Message
	channel        Channel
	acked          bool
}

// GuestSessionConfig identifies the guest behind the widget.
type GuestSessionConfig struct {
	DisplayName string
	SenderID    string
	Member      bool
}

func NewGuestSession(api API, dialer Dialer, cfg GuestSessionConfig, log *logger.Logger) *GuestSession {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &GuestSession{
		api:         api,
		dialer:      dialer,
		log:         log,
		displayName: cfg.DisplayName,
		senderID:    cfg.SenderID,
		member:      cfg.Member,
	}
}

// Open ensures the guest's conversation and connects the realtime channel.
// Safe to call repeatedly: once a conversation is held, further calls are
// no-ops. On failure the session stays inert; the widget simply cannot
// send until a later Open succeeds.
func (s *GuestSession) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.conversationID != "" {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.mu.Unlock()

	conversationID, history, err := s.api.EnsureConversation(ctx, s.displayName)
	if err != nil {
		s.log.LogError(err, "ensure conversation failed")
		return err
	}

	channel, err := s.dialer.Dial(ctx)
	if err != nil {
		s.log.LogError(err, "realtime channel dial failed")
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.conversationID != "" {
		// Logged out, or a concurrent Open won, while we were in flight.
		s.mu.Unlock()
		channel.Close()
		return nil
	}
	s.conversationID = conversationID
	s.history = append([]models.Message(nil), history...)
	s.channel = channel
	s.mu.Unlock()

	if err := channel.Emit("user:join", map[string]string{"conversationId": conversationID}); err != nil {
		s.log.LogError(err, "join emit failed", "conversation_id", conversationID)
	}
	go s.consume(channel, gen)

	s.log.Info("chat session opened", "conversation_id", conversationID)
	return nil
}

// Send pushes a user message over the channel and appends it locally right
// away; the server echo carries the same id and is dropped by the
// idempotent append. The first send of a session also appends the scripted
// concierge acknowledgement, exactly once.
func (s *GuestSession) Send(text string) error {
	s.mu.Lock()
	if s.channel == nil {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	channel := s.channel

	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: s.conversationID,
		SenderType:     models.SenderUser,
		SenderID:       s.senderID,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	s.appendLocked(msg)

	if !s.acked {
		s.acked = true
		s.appendLocked(s.autoAckLocked())
	}
	s.mu.Unlock()

	return channel.Emit("user:message", map[string]string{
		"_id":            msg.ID,
		"conversationId": msg.ConversationID,
		"senderType":     string(models.SenderUser),
		"senderId":       msg.SenderID,
		"text":           text,
	})
}

// SendQuickReply appends a canned exchange locally. No server round-trip:
// the scripted answer is already known, so both lines are synthesized
// client-side.
func (s *GuestSession) SendQuickReply(key string) error {
	qr, ok := lookupQuickReply(key, s.member)
	if !ok {
		return errors.New("unknown quick reply: " + key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == "" {
		return ErrSessionClosed
	}

	now := time.Now().UTC()
	s.appendLocked(models.Message{
		ID:             uuid.New().String(),
		ConversationID: s.conversationID,
		SenderType:     models.SenderUser,
		SenderID:       s.senderID,
		Text:           qr.Title,
		CreatedAt:      now,
	})
	s.appendLocked(models.Message{
		ID:             uuid.New().String(),
		ConversationID: s.conversationID,
		SenderType:     models.SenderBot,
		Segments:       qr.botSegments(),
		CreatedAt:      now,
	})
	return nil
}

// ConversationID returns the ensured conversation id, empty before Open
// succeeds or after Logout.
func (s *GuestSession) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// History returns a copy of the local message history.
func (s *GuestSession) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.history...)
}

// Logout closes the channel and discards all conversation state. The next
// Open runs a fresh ensure cycle. Always an explicit call: the channel
// must close the moment authentication ends, before another user on the
// same device could receive its events.
func (s *GuestSession) Logout() {
	s.mu.Lock()
	s.gen++
	channel := s.channel
	s.channel = nil
	s.conversationID = ""
	s.history = nil
	s.acked = false
	s.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	s.log.Info("chat session torn down")
}

// consume appends incoming messages until the channel or the session's
// generation ends.
func (s *GuestSession) consume(channel Channel, gen int) {
	for ev := range channel.Events() {
		if ev.Name != events.TypeMessageNew {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			s.log.LogError(err, "malformed message event")
			continue
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.appendLocked(msg)
		s.mu.Unlock()
	}
}

// appendLocked adds a message unless one with the same id is already held.
// Duplicate delivery of the same event is expected.
func (s *GuestSession) appendLocked(msg models.Message) {
	for _, held := range s.history {
		if held.ID == msg.ID {
			return
		}
	}
	s.history = append(s.history, msg)
}

func (s *GuestSession) autoAckLocked() models.Message {
	return models.Message{
		ID:             uuid.New().String(),
		ConversationID: s.conversationID,
		SenderType:     models.SenderBot,
		Segments: models.SegmentList{
			{Type: models.SegmentText, Text: "Thanks for reaching out! Our concierge team will be with you shortly."},
			{Type: models.SegmentImage, Src: "/images/concierge-welcome.jpg", Alt: "Concierge desk"},
			{Type: models.SegmentLink, To: "/offers", Text: "Browse this week's offers while you wait"},
		},
		CreatedAt: time.Now().UTC(),
	}
}
