package client

import "resort-booking-demo/backend/internal/models"

// QuickReply is one canned exchange: the title is sent as the guest's line
// and the body plus link become the scripted concierge answer. The catalog
// is static; which entries show depends on whether the guest holds a
// member account.
type QuickReply struct {
	Key        string
	Title      string
	Body       string
	LinkText   string
	LinkTo     string
	MemberOnly bool
}

var quickReplyCatalog = []QuickReply{
	{
		Key:      "hours",
		Title:    "What are the pool and spa hours?",
		Body:     "The pool is open daily from 7am to 10pm and the spa from 9am to 8pm.",
		LinkText: "See all amenities",
		LinkTo:   "/amenities",
	},
	{
		Key:      "dining",
		Title:    "Where can I see the dining menu?",
		Body:     "Our full dining menu is available online, and room service runs until 11pm.",
		LinkText: "Browse the menu",
		LinkTo:   "/menu",
	},
	{
		Key:      "checkout",
		Title:    "What time is checkout?",
		Body:     "Checkout is at 11am. Late checkout until 2pm can be arranged at the front desk.",
		LinkText: "Contact the front desk",
		LinkTo:   "/contact",
	},
	{
		Key:        "booking",
		Title:      "I'd like to review my booking",
		Body:       "You can review and manage your reservations from your account page.",
		LinkText:   "My bookings",
		LinkTo:     "/account/bookings",
		MemberOnly: true,
	},
	{
		Key:        "perks",
		Title:      "What member perks do I have?",
		Body:       "Members enjoy late checkout, a welcome drink and 10% off spa treatments.",
		LinkText:   "Member benefits",
		LinkTo:     "/membership",
		MemberOnly: true,
	},
}

// QuickReplies returns the catalog entries available to the current guest.
func QuickReplies(member bool) []QuickReply {
	out := make([]QuickReply, 0, len(quickReplyCatalog))
	for _, qr := range quickReplyCatalog {
		if qr.MemberOnly && !member {
			continue
		}
		out = append(out, qr)
	}
	return out
}

func lookupQuickReply(key string, member bool) (QuickReply, bool) {
	for _, qr := range QuickReplies(member) {
		if qr.Key == key {
			return qr, true
		}
	}
	return QuickReply{}, false
}

func (qr QuickReply) botSegments() models.SegmentList {
	return models.SegmentList{
		{Type: models.SegmentText, Text: qr.Body},
		{Type: models.SegmentLink, To: qr.LinkTo, Text: qr.LinkText},
	}
}
