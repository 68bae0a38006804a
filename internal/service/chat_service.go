package service

import (
	"context"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/repository"
	"resort-booking-demo/backend/pkg/cache"
	"resort-booking-demo/backend/pkg/errors"
	"resort-booking-demo/backend/pkg/logger"

	"github.com/google/uuid"
)

// UnreadCache is the cross-instance counter cache (Redis in production).
// A nil cache is valid; every read then falls through to the database.
type UnreadCache interface {
	SetUnreadTotal(ctx context.Context, count int) error
	UnreadTotal(ctx context.Context) (int, bool)
	InvalidateUnreadTotal(ctx context.Context) error
}

// ChatServiceOptions bound the chat service behavior.
type ChatServiceOptions struct {
	MaxMessageLength int
	HistoryLimit     int
	ListLimit        int
	DetailCacheTTL   time.Duration
}

// DefaultChatServiceOptions returns the limits used when none are configured.
func DefaultChatServiceOptions() ChatServiceOptions {
	return ChatServiceOptions{
		MaxMessageLength: 2000,
		HistoryLimit:     500,
		ListLimit:        200,
		DetailCacheTTL:   30 * time.Second,
	}
}

// ChatService owns conversation and message semantics: idempotent ensure,
// server-side message identity, unread accounting and event publication.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	bus           *events.Broadcaster
	unread        UnreadCache
	detailCache   *cache.Cache
	opts          ChatServiceOptions
	log           *logger.Logger
}

// NewChatService wires the chat service. unread may be nil when Redis is
// disabled; the database is then the only source of the unread total.
func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	bus *events.Broadcaster,
	unread UnreadCache,
	opts ChatServiceOptions,
	log *logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.GetGlobal()
	}
	if opts.MaxMessageLength <= 0 {
		opts = DefaultChatServiceOptions()
	}
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		bus:           bus,
		unread:        unread,
		detailCache:   cache.NewCacheWith(opts.DetailCacheTTL, time.Minute, 512),
		opts:          opts,
		log:           log,
	}
}

// EnsureConversation finds or creates the guest's conversation and returns
// it with the full message history. Repetition is safe: the same guest
// always receives the same conversation ID.
func (s *ChatService) EnsureConversation(guestID uint, displayName string) (*models.Conversation, []models.Message, error) {
	conv, err := s.conversations.EnsureForGuest(guestID, displayName)
	if err != nil {
		return nil, nil, errors.NewInternalServerError("CHAT_ENSURE_FAILED", "failed to ensure conversation")
	}

	history, err := s.messages.ListByConversation(conv.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, nil, errors.NewInternalServerError("CHAT_HISTORY_FAILED", "failed to load conversation history")
	}
	return conv, history, nil
}

// AppendParams describes one message to append. ID is optional: the chat
// widget supplies the identifier it already used for its optimistic local
// append so the realtime echo deduplicates against it; when empty the ID is
// assigned here. Either way the same identifier flows through the REST
// response and the realtime echo.
type AppendParams struct {
	ID             string
	ConversationID string
	Sender         models.SenderType
	SenderID       string
	Text           string
	Segments       models.SegmentList
}

// AppendMessage validates, persists and publishes one message.
func (s *ChatService) AppendMessage(p AppendParams) (*models.Message, error) {
	if !p.Sender.Valid() {
		return nil, errors.NewBadRequestError("CHAT_BAD_SENDER", "unknown sender type")
	}
	if p.Text == "" && len(p.Segments) == 0 {
		return nil, errors.NewBadRequestError("CHAT_EMPTY_MESSAGE", "message body is required")
	}
	if len(p.Text) > s.opts.MaxMessageLength {
		return nil, errors.NewBadRequestError("CHAT_MESSAGE_TOO_LONG", "message exceeds the allowed length")
	}
	if _, err := s.conversations.GetByID(p.ConversationID); err != nil {
		return nil, errors.NewNotFoundError("CHAT_CONVERSATION_NOT_FOUND", "conversation not found")
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewBadRequestError("CHAT_BAD_MESSAGE_ID", "message id must be a UUID")
	}

	msg := &models.Message{
		ID:             id,
		ConversationID: p.ConversationID,
		SenderType:     p.Sender,
		SenderID:       p.SenderID,
		Text:           p.Text,
		Segments:       p.Segments,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(msg); err != nil {
		return nil, errors.NewInternalServerError("CHAT_SAVE_FAILED", "failed to save message")
	}

	// Guest-sent messages count as unread for the admin desk
	unreadDelta := 0
	if p.Sender == models.SenderUser {
		unreadDelta = 1
	}
	if err := s.conversations.RecordActivity(p.ConversationID, msg.Preview(), msg.CreatedAt, unreadDelta); err != nil {
		s.log.LogError(err, "failed to record conversation activity", "conversation_id", p.ConversationID)
	}
	s.detailCache.Delete(p.ConversationID)

	s.bus.Publish(events.ConversationTopic(p.ConversationID), events.Event{
		Type:    events.TypeMessageNew,
		Payload: *msg,
	})

	if p.Sender == models.SenderUser {
		s.publishUnreadUpdate(context.Background())
	}

	return msg, nil
}

// SendAdminReply persists an admin message and returns it. The realtime
// echo published on the conversation topic carries the same ID as the
// returned message, so list/thread views can merge both sources safely.
func (s *ChatService) SendAdminReply(conversationID, adminID, text string) (*models.Message, error) {
	return s.AppendMessage(AppendParams{
		ConversationID: conversationID,
		Sender:         models.SenderAdmin,
		SenderID:       adminID,
		Text:           text,
	})
}

// ListConversations returns admin-facing summaries sorted by recency.
func (s *ChatService) ListConversations() ([]models.ConversationSummary, error) {
	conversations, err := s.conversations.ListByRecency(s.opts.ListLimit)
	if err != nil {
		return nil, errors.NewInternalServerError("CHAT_LIST_FAILED", "failed to list conversations")
	}
	summaries := make([]models.ConversationSummary, len(conversations))
	for i := range conversations {
		summaries[i] = conversations[i].Summary()
	}
	return summaries, nil
}

// GetConversation returns one conversation, briefly cached.
func (s *ChatService) GetConversation(id string) (*models.Conversation, error) {
	if cached, ok := s.detailCache.Get(id); ok {
		if conv, ok := cached.(*models.Conversation); ok {
			return conv, nil
		}
	}
	conv, err := s.conversations.GetByID(id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NewNotFoundError("CHAT_CONVERSATION_NOT_FOUND", "conversation not found")
		}
		return nil, errors.NewInternalServerError("CHAT_GET_FAILED", "failed to load conversation")
	}
	s.detailCache.Set(id, conv)
	return conv, nil
}

// History returns the chronological message list for a conversation.
func (s *ChatService) History(conversationID string) ([]models.Message, error) {
	if _, err := s.GetConversation(conversationID); err != nil {
		return nil, err
	}
	history, err := s.messages.ListByConversation(conversationID, s.opts.HistoryLimit)
	if err != nil {
		return nil, errors.NewInternalServerError("CHAT_HISTORY_FAILED", "failed to load conversation history")
	}
	return history, nil
}

// MarkRead clears the unread count for a conversation.
func (s *ChatService) MarkRead(ctx context.Context, conversationID string) error {
	if err := s.conversations.MarkRead(conversationID); err != nil {
		if err == repository.ErrNotFound {
			return errors.NewNotFoundError("CHAT_CONVERSATION_NOT_FOUND", "conversation not found")
		}
		return errors.NewInternalServerError("CHAT_MARK_READ_FAILED", "failed to mark conversation read")
	}
	s.detailCache.Delete(conversationID)
	if s.unread != nil {
		if err := s.unread.InvalidateUnreadTotal(ctx); err != nil {
			s.log.LogError(err, "failed to invalidate unread counter")
		}
	}
	return nil
}

// UnreadCount returns the total number of unread guest messages, preferring
// the counter cache and falling back to the database.
func (s *ChatService) UnreadCount(ctx context.Context) (int, error) {
	if s.unread != nil {
		if count, ok := s.unread.UnreadTotal(ctx); ok {
			return count, nil
		}
	}
	count, err := s.conversations.TotalUnread()
	if err != nil {
		return 0, errors.NewInternalServerError("CHAT_UNREAD_FAILED", "failed to compute unread count")
	}
	if s.unread != nil {
		if err := s.unread.SetUnreadTotal(ctx, count); err != nil {
			s.log.LogError(err, "failed to cache unread counter")
		}
	}
	return count, nil
}

// publishUnreadUpdate recomputes the unread total and announces it on the
// admin notifications topic.
func (s *ChatService) publishUnreadUpdate(ctx context.Context) {
	count, err := s.conversations.TotalUnread()
	if err != nil {
		s.log.LogError(err, "failed to compute unread count for broadcast")
		return
	}
	if s.unread != nil {
		if err := s.unread.SetUnreadTotal(ctx, count); err != nil {
			s.log.LogError(err, "failed to cache unread counter")
		}
	}
	s.bus.Publish(events.TopicAdminNotifications, events.Event{
		Type:    events.TypeChatNewMessage,
		Payload: events.UnreadUpdate{UnreadCount: count},
	})
}
