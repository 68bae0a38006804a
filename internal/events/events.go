package events

// Event names carried on the bus and over the realtime channel. The names
// match the wire protocol the web clients speak.
const (
	TypeMessageNew     = "message:new"
	TypeChatNewMessage = "chat:new-message"
	TypeBookingUpdated = "booking:updated"
	TypeOrderNew       = "order:new"
	TypeInquiryNew     = "inquiry:new"
)

// TopicAdminNotifications is the global topic every admin session joins.
// It is distinct from per-conversation rooms.
const TopicAdminNotifications = "admin:notifications"

// ConversationTopic returns the topic name for one conversation's room.
func ConversationTopic(conversationID string) string {
	return "conv:" + conversationID
}

// Event is one envelope published on the bus. Payload is the domain value
// for the event type (a Message for message:new, an UnreadUpdate for
// chat:new-message, and so on).
type Event struct {
	Type    string      `json:"event"`
	Payload interface{} `json:"data"`
}

// UnreadUpdate is the payload of a chat:new-message event.
type UnreadUpdate struct {
	UnreadCount int `json:"unreadCount"`
}
