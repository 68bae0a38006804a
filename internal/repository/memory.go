package repository

import (
	"sort"
	"sync"
	"time"

	"resort-booking-demo/backend/internal/models"

	"github.com/google/uuid"
)

// MemoryConversationRepository keeps conversations in process memory. Used
// by tests and by local development without a database.
type MemoryConversationRepository struct {
	mu      sync.Mutex
	byID    map[string]*models.Conversation
	byGuest map[uint]string
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		byID:    make(map[string]*models.Conversation),
		byGuest: make(map[uint]string),
	}
}

func (r *MemoryConversationRepository) EnsureForGuest(guestID uint, displayName string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byGuest[guestID]; ok {
		conv := *r.byID[id]
		return &conv, nil
	}
	gid := guestID
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:          uuid.New().String(),
		GuestID:     &gid,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.byID[conv.ID] = conv
	r.byGuest[guestID] = conv.ID
	out := *conv
	return &out, nil
}

func (r *MemoryConversationRepository) GetByID(id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *conv
	return &out, nil
}

func (r *MemoryConversationRepository) ListByRecency(limit int) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Conversation, 0, len(r.byID))
	for _, conv := range r.byID {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryConversationRepository) RecordActivity(id string, preview string, at time.Time, unreadDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	conv.LastMessage = preview
	conv.LastMessageAt = at
	conv.UnreadCount += unreadDelta
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryConversationRepository) MarkRead(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	conv.UnreadCount = 0
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryConversationRepository) TotalUnread() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, conv := range r.byID {
		total += conv.UnreadCount
	}
	return total, nil
}

// MemoryMessageRepository is the in-memory counterpart for messages.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	messages []models.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

func (r *MemoryMessageRepository) Create(message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, held := range r.messages {
		if held.ID == message.ID {
			return ErrDuplicateID
		}
	}
	r.messages = append(r.messages, *message)
	return nil
}

func (r *MemoryMessageRepository) ListByConversation(conversationID string, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, 0)
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
