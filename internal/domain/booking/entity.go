package booking

import (
	"encoding/json"
	"errors"
	"time"

	"homecare-booking/internal/pkg/clock"

	"github.com/google/uuid"
)

var (
	ErrMissingClient    = errors.New("booking requires a client id")
	ErrInvalidKind      = errors.New("unknown service kind")
	ErrScheduleInPast   = errors.New("scheduled time cannot be in the past")
	ErrEmptyLocation    = errors.New("location cannot be empty")
	ErrLocationTooLong  = errors.New("location exceeds maximum length")
	ErrInvalidScore     = errors.New("score must be between 1 and 5")
	ErrReviewTooLong    = errors.New("review exceeds maximum length")
	ErrTooManyAspects   = errors.New("too many aspect scores")
	ErrUnknownAspect    = errors.New("unknown aspect name")
	ErrEmptyReason      = errors.New("cancellation reason cannot be empty")
	ErrInvalidActor     = errors.New("unknown cancellation actor")
	ErrDuplicateReview  = errors.New("booking already has a review")
	ErrMissingCaregiver = errors.New("assignment requires a caregiver id")
)

// Booking is the request-to-delivery record for one home-care visit.
// All mutation goes through transition methods; fields are never edited
// in place, so a failed transition leaves the receiver untouched.
type Booking struct {
	id          uuid.UUID
	clientID    uuid.UUID
	caregiverID *uuid.UUID
	kind        ServiceKind
	scheduledAt time.Time
	location    Location
	details     json.RawMessage
	status      Status
	price       PriceSnapshot
	cancel      *Cancellation
	rating      *Rating
	history     []StatusStamp
	createdAt   time.Time
	updatedAt   time.Time
}

type Factory struct {
	Clock clock.Clock
}

func NewFactory(clk clock.Clock) *Factory {
	return &Factory{Clock: clk}
}

func (f *Factory) CreateBooking(
	clientID uuid.UUID,
	kind ServiceKind,
	scheduledAt time.Time,
	location Location,
	details json.RawMessage,
	price PriceSnapshot,
) (*Booking, error) {
	now := f.Clock.Now()

	if clientID == uuid.Nil {
		return nil, ErrMissingClient
	}
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if !scheduledAt.After(now) {
		return nil, ErrScheduleInPast
	}

	return &Booking{
		id:          uuid.New(),
		clientID:    clientID,
		kind:        kind,
		scheduledAt: scheduledAt,
		location:    location,
		details:     details,
		status:      StatusRequested,
		price:       price,
		history:     []StatusStamp{{Status: StatusRequested, At: now}},
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructBooking(
	id, clientID uuid.UUID,
	caregiverID *uuid.UUID,
	kind ServiceKind,
	scheduledAt time.Time,
	location Location,
	details json.RawMessage,
	status Status,
	price PriceSnapshot,
	cancel *Cancellation,
	rating *Rating,
	history []StatusStamp,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:          id,
		clientID:    clientID,
		caregiverID: caregiverID,
		kind:        kind,
		scheduledAt: scheduledAt,
		location:    location,
		details:     details,
		status:      status,
		price:       price,
		cancel:      cancel,
		rating:      rating,
		history:     history,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (b *Booking) ID() uuid.UUID          { return b.id }
func (b *Booking) ClientID() uuid.UUID    { return b.clientID }
func (b *Booking) Kind() ServiceKind      { return b.kind }
func (b *Booking) ScheduledAt() time.Time { return b.scheduledAt }
func (b *Booking) Location() Location     { return b.location }
func (b *Booking) Status() Status         { return b.status }
func (b *Booking) Price() PriceSnapshot   { return b.price }
func (b *Booking) CreatedAt() time.Time   { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time   { return b.updatedAt }

func (b *Booking) CaregiverID() *uuid.UUID {
	if b.caregiverID == nil {
		return nil
	}
	id := *b.caregiverID
	return &id
}

func (b *Booking) Details() json.RawMessage {
	if b.details == nil {
		return nil
	}
	out := make(json.RawMessage, len(b.details))
	copy(out, b.details)
	return out
}

func (b *Booking) Cancellation() *Cancellation {
	if b.cancel == nil {
		return nil
	}
	c := *b.cancel
	return &c
}

func (b *Booking) Rating() *Rating {
	if b.rating == nil {
		return nil
	}
	r := *b.rating
	return &r
}

func (b *Booking) History() []StatusStamp {
	out := make([]StatusStamp, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Booking) HasReview() bool {
	return b.rating != nil
}

func (b *Booking) IsTerminal() bool {
	return b.status.IsTerminal()
}

// clone produces an independent copy so transitions never mutate the receiver.
func (b *Booking) clone() *Booking {
	next := *b
	if b.caregiverID != nil {
		id := *b.caregiverID
		next.caregiverID = &id
	}
	if b.details != nil {
		next.details = make(json.RawMessage, len(b.details))
		copy(next.details, b.details)
	}
	if b.cancel != nil {
		c := *b.cancel
		next.cancel = &c
	}
	if b.rating != nil {
		r := *b.rating
		next.rating = &r
	}
	next.history = make([]StatusStamp, len(b.history))
	copy(next.history, b.history)
	return &next
}
