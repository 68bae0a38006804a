package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/pkg/logger"
)

// Category classifies a notification by the admin page it belongs to.
type Category string

const (
	CategoryChat    Category = "chat"
	CategoryBooking Category = "booking"
	CategoryOrder   Category = "order"
	CategoryInquiry Category = "inquiry"
)

var categoryRoutes = map[Category]string{
	CategoryChat:    "/admin/chat",
	CategoryBooking: "/admin/bookings",
	CategoryOrder:   "/admin/orders",
	CategoryInquiry: "/admin/inquiries",
}

// Toast is a transient notification. It is never persisted; Toasts()
// drops it once ExpiresAt passes.
type Toast struct {
	Title     string
	Message   string
	Category  Category
	ExpiresAt time.Time
}

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 6 * time.Second

// NotificationHub is the per-admin-session notification state: the unread
// chat counter, one alert flag per category and the active toasts. It owns
// a single realtime channel subscribed to the admin notifications group.
//
// A toast is only raised for pages the admin is not currently viewing;
// an event for the open page clears its alert instead, since the admin is
// already looking at the content the badge would point to.
type NotificationHub struct {
	api    API
	dialer Dialer
	log    *logger.Logger

	toastTTL time.Duration
	now      func() time.Time

	onChatMessage func()

	mu         sync.Mutex
	gen        int
	route      string
	channel    Channel
	unreadChat int
	alerts     map[Category]bool
	toasts     []Toast
}

func NewNotificationHub(api API, dialer Dialer, log *logger.Logger) *NotificationHub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &NotificationHub{
		api:      api,
		dialer:   dialer,
		log:      log,
		toastTTL: DefaultToastDuration,
		now:      time.Now,
		alerts:   make(map[Category]bool),
	}
}

// SetOnChatMessage registers a callback invoked on every new chat message
// event, after the unread counter is updated. The conversation list uses
// it to trigger its re-fetch.
func (h *NotificationHub) SetOnChatMessage(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChatMessage = fn
}

// Start fetches the initial unread count and joins the admin notifications
// group. A failed count fetch is logged and the counter starts at zero;
// the first chat event corrects it.
func (h *NotificationHub) Start(ctx context.Context, route string) error {
	count, err := h.api.UnreadCount(ctx)
	if err != nil {
		h.log.LogError(err, "initial unread count fetch failed")
	}

	h.mu.Lock()
	h.route = route
	h.unreadChat = count
	gen := h.gen
	h.mu.Unlock()

	return h.connect(ctx, gen)
}

// VisitPage records that the admin is looking at route and clears the alert
// for that page. The subscription is left alone; RouteChanged handles
// navigation.
func (h *NotificationHub) VisitPage(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setRouteLocked(route)
}

func (h *NotificationHub) setRouteLocked(route string) {
	h.route = route
	for cat, r := range categoryRoutes {
		if r == route {
			h.alerts[cat] = false
		}
	}
}

// RouteChanged records the new route, clears the alert for the page being
// entered and re-establishes the subscription so events are judged against
// the current page.
func (h *NotificationHub) RouteChanged(ctx context.Context, route string) error {
	h.mu.Lock()
	h.setRouteLocked(route)
	h.gen++
	gen := h.gen
	channel := h.channel
	h.channel = nil
	h.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	return h.connect(ctx, gen)
}

func (h *NotificationHub) connect(ctx context.Context, gen int) error {
	channel, err := h.dialer.Dial(ctx)
	if err != nil {
		h.log.LogError(err, "notification channel dial failed")
		return err
	}

	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		channel.Close()
		return nil
	}
	h.channel = channel
	h.mu.Unlock()

	if err := channel.Emit("admin:join:notifications", struct{}{}); err != nil {
		h.log.LogError(err, "notifications join emit failed")
	}
	go h.consume(channel, gen)
	return nil
}

// Stop closes the channel. Alerts and counters survive until the hub is
// discarded with the session.
func (h *NotificationHub) Stop() {
	h.mu.Lock()
	h.gen++
	channel := h.channel
	h.channel = nil
	h.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
}

// UnreadChat returns the unread guest message total.
func (h *NotificationHub) UnreadChat() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unreadChat
}

// Alert reports whether the category's badge is raised.
func (h *NotificationHub) Alert(cat Category) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alerts[cat]
}

// Toasts returns the toasts still within their display window.
func (h *NotificationHub) Toasts() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked()
	return append([]Toast(nil), h.toasts...)
}

func (h *NotificationHub) consume(channel Channel, gen int) {
	for ev := range channel.Events() {
		h.mu.Lock()
		stale := h.gen != gen
		h.mu.Unlock()
		if stale {
			return
		}
		h.handleEvent(ev)
	}
}

func (h *NotificationHub) handleEvent(ev Event) {
	switch ev.Name {
	case events.TypeChatNewMessage:
		var update events.UnreadUpdate
		if err := json.Unmarshal(ev.Data, &update); err != nil {
			h.log.LogError(err, "malformed unread update")
			return
		}
		h.mu.Lock()
		h.unreadChat = update.UnreadCount
		fn := h.onChatMessage
		h.mu.Unlock()
		h.notify(CategoryChat, "New message", "A guest sent a new chat message")
		if fn != nil {
			fn()
		}

	case events.TypeBookingUpdated:
		var booking models.Booking
		if err := json.Unmarshal(ev.Data, &booking); err != nil {
			h.log.LogError(err, "malformed booking event")
			return
		}
		h.notify(CategoryBooking, "Booking updated",
			fmt.Sprintf("%s's booking for %s is ready for review", booking.GuestName, booking.RoomName))

	case events.TypeOrderNew:
		var order models.Order
		if err := json.Unmarshal(ev.Data, &order); err != nil {
			h.log.LogError(err, "malformed order event")
			return
		}
		h.notify(CategoryOrder, "New order",
			fmt.Sprintf("%s placed an order (%d items)", order.GuestName, order.ItemCount))

	case events.TypeInquiryNew:
		var inquiry models.Inquiry
		if err := json.Unmarshal(ev.Data, &inquiry); err != nil {
			h.log.LogError(err, "malformed inquiry event")
			return
		}
		h.notify(CategoryInquiry, "New inquiry",
			fmt.Sprintf("%s: %s", inquiry.Name, inquiry.Subject))
	}
}

func (h *NotificationHub) notify(cat Category, title, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.route == categoryRoutes[cat] {
		// Already viewing the page this event belongs to.
		h.alerts[cat] = false
		return
	}

	h.alerts[cat] = true
	h.pruneLocked()
	h.toasts = append(h.toasts, Toast{
		Title:     title,
		Message:   message,
		Category:  cat,
		ExpiresAt: h.now().Add(h.toastTTL),
	})
}

func (h *NotificationHub) pruneLocked() {
	now := h.now()
	kept := h.toasts[:0]
	for _, t := range h.toasts {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	h.toasts = kept
}
