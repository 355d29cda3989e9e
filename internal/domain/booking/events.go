package booking

import (
	"time"

	"github.com/google/uuid"
)

// Event names double as routing keys; the segment before the first dot
// selects the exchange family.
const (
	EventCreated   = "booking.created"
	EventSearching = "booking.searching"
	EventAssigned  = "booking.assigned"
	EventConfirmed = "booking.confirmed"
	EventCompleted = "booking.completed"
	EventCancelled = "booking.cancelled"
	EventNoShow    = "booking.no_show"
	EventReviewed  = "booking.reviewed"
)

// Event describes exactly one committed transition. It is immutable once
// built and carries only what downstream consumers need to stay idempotent.
type Event struct {
	Name       string
	BookingID  uuid.UUID
	ClientID   uuid.UUID
	Status     Status
	OccurredAt time.Time
	Payload    map[string]any
}

func (b *Booking) newEvent(name string, at time.Time, payload map[string]any) Event {
	return Event{
		Name:       name,
		BookingID:  b.id,
		ClientID:   b.clientID,
		Status:     b.status,
		OccurredAt: at,
		Payload:    payload,
	}
}

// CreatedEvent announces a freshly placed booking, including the frozen
// payable amount so consumers never have to re-derive pricing.
func (b *Booking) CreatedEvent() Event {
	return b.newEvent(EventCreated, b.createdAt, map[string]any{
		"kind":          b.kind.String(),
		"scheduled_at":  b.scheduledAt.Format(time.RFC3339),
		"payable_cents": b.price.Payable.Cents(),
	})
}
