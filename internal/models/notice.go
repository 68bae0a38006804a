package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// The types below are the notification payloads pushed to the admin console
// when something outside the chat subsystem needs attention. Their CRUD
// lifecycles live elsewhere; only the event shapes matter here.

// Booking is the payload of a "booking:updated" notification, emitted when
// a booking transitions into a reviewable state.
type Booking struct {
	ID        uint      `json:"id"`
	GuestName string    `json:"guestName"`
	RoomName  string    `json:"roomName"`
	Status    string    `json:"status"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
}

// Order is the payload of an "order:new" notification.
type Order struct {
	ID        uint            `json:"id"`
	GuestName string          `json:"guestName"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Inquiry is the payload of an "inquiry:new" notification.
type Inquiry struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
