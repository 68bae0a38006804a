package service

import (
	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/pkg/logger"
)

// Notifier is the entry point the booking, ordering and inquiry subsystems
// call when something needs the admin desk's attention. Each call fans out
// one event on the admin notifications topic; connected admin sessions
// translate it into badges and toasts.
type Notifier struct {
	bus *events.Broadcaster
	log *logger.Logger
}

func NewNotifier(bus *events.Broadcaster, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Notifier{bus: bus, log: log}
}

// BookingUpdated announces that a booking transitioned into a reviewable state.
func (n *Notifier) BookingUpdated(booking models.Booking) {
	n.log.Info("booking notification", "booking_id", booking.ID, "status", booking.Status)
	n.bus.Publish(events.TopicAdminNotifications, events.Event{
		Type:    events.TypeBookingUpdated,
		Payload: booking,
	})
}

// OrderCreated announces a new order.
func (n *Notifier) OrderCreated(order models.Order) {
	n.log.Info("order notification", "order_id", order.ID)
	n.bus.Publish(events.TopicAdminNotifications, events.Event{
		Type:    events.TypeOrderNew,
		Payload: order,
	})
}

// InquiryCreated announces a new inquiry.
func (n *Notifier) InquiryCreated(inquiry models.Inquiry) {
	n.log.Info("inquiry notification", "inquiry_id", inquiry.ID)
	n.bus.Publish(events.TopicAdminNotifications, events.Event{
		Type:    events.TypeInquiryNew,
		Payload: inquiry,
	})
}
