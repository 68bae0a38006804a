package models

import (
	"time"
)

// Conversation is one guest's chat with the concierge desk. It is created
// by the first "ensure" call for that guest, updated on every message, and
// never deleted by the chat subsystem.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	GuestID       *uint     `gorm:"index" json:"guestId,omitempty"`
	DisplayName   string    `json:"displayName"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsUnread reports whether the conversation holds messages no admin has seen.
func (c *Conversation) IsUnread() bool {
	return c.UnreadCount > 0
}

// ConversationSummary is the list-view shape served to the admin console.
type ConversationSummary struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"displayName"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	IsUnread      bool      `json:"isUnread"`
	UnreadCount   int       `json:"unreadCount"`
}

// Summary converts a conversation to its list-view shape.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:            c.ID,
		DisplayName:   c.DisplayName,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		IsUnread:      c.IsUnread(),
		UnreadCount:   c.UnreadCount,
	}
}
