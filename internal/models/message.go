package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderBot   SenderType = "bot"
	SenderAdmin SenderType = "admin"
)

// Valid reports whether the sender type is one of the known values.
func (s SenderType) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderAdmin:
		return true
	}
	return false
}

// Segment kinds.
const (
	SegmentText  = "text"
	SegmentLink  = "link"
	SegmentImage = "image"
)

// Segment is one element of a structured message body. Bot-generated
// messages may carry a sequence of text, link and image segments instead
// of a plain string.
type Segment struct {
	Type string `json:"type"` // "text", "link" or "image"
	Text string `json:"text,omitempty"`
	To   string `json:"to,omitempty"`  // link target
	Src  string `json:"src,omitempty"` // image source
	Alt  string `json:"alt,omitempty"`
}

// SegmentList is stored as a JSON column.
type SegmentList []Segment

// Value implements driver.Valuer for GORM.
func (s SegmentList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for GORM.
func (s *SegmentList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported segment column type %T", value)
}

// Message is one entry in a conversation. Messages are append-only and
// ordered by creation time; the ID is assigned server-side so the REST
// response and the realtime echo of the same message always agree.
type Message struct {
	ID             string      `gorm:"primaryKey;size:36" json:"_id"`
	ConversationID string      `gorm:"index" json:"conversationId"`
	SenderType     SenderType  `gorm:"size:16" json:"senderType"`
	SenderID       string      `gorm:"size:64" json:"senderId,omitempty"`
	Text           string      `json:"-"`
	Segments       SegmentList `gorm:"type:jsonb" json:"-"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// messageJSON is the wire form: "text" is either a string or a segment array.
type messageJSON struct {
	ID             string          `json:"_id"`
	ConversationID string          `json:"conversationId"`
	SenderType     SenderType      `json:"senderType"`
	SenderID       string          `json:"senderId,omitempty"`
	Text           json.RawMessage `json:"text"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// MarshalJSON renders the body as a plain string, or as the segment array
// when the message carries structured content.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderType:     m.SenderType,
		SenderID:       m.SenderID,
		CreatedAt:      m.CreatedAt,
	}
	var err error
	if len(m.Segments) > 0 {
		out.Text, err = json.Marshal(m.Segments)
	} else {
		out.Text, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both body forms.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.ID = in.ID
	m.ConversationID = in.ConversationID
	m.SenderType = in.SenderType
	m.SenderID = in.SenderID
	m.CreatedAt = in.CreatedAt
	m.Text = ""
	m.Segments = nil

	trimmed := string(in.Text)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(in.Text, &m.Segments)
	}
	if err := json.Unmarshal(in.Text, &m.Text); err != nil {
		return errors.New("message text must be a string or a segment array")
	}
	return nil
}

// Preview returns the short plain-text form used for conversation summaries.
func (m *Message) Preview() string {
	text := m.Text
	if text == "" {
		for _, seg := range m.Segments {
			if seg.Type == "text" && seg.Text != "" {
				text = seg.Text
				break
			}
		}
	}
	const maxPreview = 120
	if len(text) <= maxPreview {
		return text
	}
	// Cut on a rune boundary so the preview stays valid UTF-8.
	cut := maxPreview
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
