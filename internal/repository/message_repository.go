package repository

import (
	"resort-booking-demo/backend/internal/models"

	"gorm.io/gorm"
)

// MessageRepository persists conversation messages.
type MessageRepository interface {
	Create(message *models.Message) error
	// ListByConversation returns messages in chronological order.
	ListByConversation(conversationID string, limit int) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *GormMessageRepository) ListByConversation(conversationID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	q := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&messages).Error
	return messages, err
}
