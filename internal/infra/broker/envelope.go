package broker

import (
	"strings"
	"time"

	"homecare-booking/internal/domain/booking"
)

// Envelope is the wire form of a domain event. Routing key equals the event
// name; the family segment before the first dot selects the exchange.
type Envelope struct {
	Event     string         `json:"event"`
	BookingID string         `json:"booking_id"`
	ClientID  string         `json:"client_id"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp"`
	Origin    string         `json:"origin"`
}

func NewEnvelope(evt booking.Event, origin string) Envelope {
	return Envelope{
		Event:     evt.Name,
		BookingID: evt.BookingID.String(),
		ClientID:  evt.ClientID.String(),
		Status:    evt.Status.String(),
		Payload:   evt.Payload,
		Timestamp: evt.OccurredAt.UTC().Format(time.RFC3339),
		Origin:    origin,
	}
}

// ExchangeFor maps an event family to its topic exchange, e.g.
// "booking.cancelled" -> "booking.events".
func ExchangeFor(eventName, suffix string) string {
	family, _, found := strings.Cut(eventName, ".")
	if !found || family == "" {
		family = "misc"
	}
	return family + "." + suffix
}
