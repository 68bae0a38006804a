package repository

import (
	"errors"
	"time"

	"resort-booking-demo/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// ErrDuplicateID is returned when a message id is already stored.
var ErrDuplicateID = errors.New("message id already exists")

// ConversationRepository persists guest conversations.
type ConversationRepository interface {
	// EnsureForGuest finds the conversation owned by the guest or creates
	// one. Safe to call repeatedly: the same guest always gets the same
	// conversation back.
	EnsureForGuest(guestID uint, displayName string) (*models.Conversation, error)
	GetByID(id string) (*models.Conversation, error)
	// ListByRecency returns conversations ordered by most recent activity.
	ListByRecency(limit int) ([]models.Conversation, error)
	// RecordActivity updates the preview and timestamp after a new message;
	// unreadDelta is 1 for guest-sent messages, 0 otherwise.
	RecordActivity(id string, preview string, at time.Time, unreadDelta int) error
	// MarkRead zeroes the unread count.
	MarkRead(id string) error
	// TotalUnread sums unread counts across all conversations.
	TotalUnread() (int, error)
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) EnsureForGuest(guestID uint, displayName string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where("guest_id = ?", guestID).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ID:            uuid.New().String(),
		GuestID:       &guestID,
		DisplayName:   displayName,
		LastMessageAt: time.Now(),
	}
	if err := r.db.Create(&conv).Error; err != nil {
		// A concurrent ensure for the same guest may have won the race;
		// re-read before giving up.
		var existing models.Conversation
		if lookupErr := r.db.Where("guest_id = ?", guestID).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (r *GormConversationRepository) GetByID(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *GormConversationRepository) ListByRecency(limit int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	q := r.db.Order("last_message_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&conversations).Error
	return conversations, err
}

func (r *GormConversationRepository) RecordActivity(id string, preview string, at time.Time, unreadDelta int) error {
	updates := map[string]interface{}{
		"last_message":    preview,
		"last_message_at": at,
	}
	if unreadDelta != 0 {
		updates["unread_count"] = gorm.Expr("unread_count + ?", unreadDelta)
	}
	res := r.db.Model(&models.Conversation{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) MarkRead(id string) error {
	res := r.db.Model(&models.Conversation{}).Where("id = ?", id).Update("unread_count", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) TotalUnread() (int, error) {
	var total int64
	err := r.db.Model(&models.Conversation{}).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return int(total), err
}
