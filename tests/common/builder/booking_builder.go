//go:build unit || e2e

package builder

import (
	"encoding/json"
	"time"

	dombooking "homecare-booking/internal/domain/booking"
	reqdto "homecare-booking/internal/handler/dto/request"
	"homecare-booking/internal/pkg/clock"
	"homecare-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

// BookingBuilder assembles bookings for unit and e2e tests. The defaults
// mirror the documented pricing example: 1000 base, 150 fee, 207 tax.
type BookingBuilder struct {
	ClientID    uuid.UUID
	Kind        string
	ScheduledAt time.Time
	Location    string
	Details     json.RawMessage

	BaseCents        int64
	PlatformFeeCents int64
	TaxCents         int64

	Now time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &BookingBuilder{
		ClientID:         uuid.New(),
		Kind:             string(dombooking.KindNursing),
		ScheduledAt:      now.Add(48 * time.Hour),
		Location:         "12 Rosewood Lane, Springfield",
		Details:          json.RawMessage(`{"notes":"second floor, ring twice"}`),
		BaseCents:        1000,
		PlatformFeeCents: 150,
		TaxCents:         207,
		Now:              now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) PayableCents() int64 {
	return b.BaseCents + b.PlatformFeeCents + b.TaxCents
}

func (b *BookingBuilder) Snapshot() dombooking.PriceSnapshot {
	snapshot, err := dombooking.NewPriceSnapshot(
		dombooking.NewMoney(b.BaseCents),
		dombooking.NewMoney(b.PlatformFeeCents),
		dombooking.NewMoney(b.TaxCents),
		dombooking.NewMoney(b.PayableCents()),
	)
	if err != nil {
		panic(err)
	}
	return snapshot
}

func (b *BookingBuilder) BuildDomain() (*dombooking.Booking, error) {
	factory := dombooking.NewFactory(clock.NewMockClock(b.Now))
	location, err := dombooking.NewLocation(b.Location)
	if err != nil {
		return nil, err
	}
	return factory.CreateBooking(b.ClientID, dombooking.ServiceKind(b.Kind), b.ScheduledAt, location, b.Details, b.Snapshot())
}

// BuildInStatus walks a fresh booking through the lifecycle graph until it
// reaches the wanted status.
func (b *BookingBuilder) BuildInStatus(status dombooking.Status) (*dombooking.Booking, error) {
	current, err := b.BuildDomain()
	if err != nil {
		return nil, err
	}

	steps := map[dombooking.Status][]dombooking.Status{
		dombooking.StatusRequested: {},
		dombooking.StatusSearching: {dombooking.StatusSearching},
		dombooking.StatusAssigned:  {dombooking.StatusSearching, dombooking.StatusAssigned},
		dombooking.StatusConfirmed: {dombooking.StatusSearching, dombooking.StatusAssigned, dombooking.StatusConfirmed},
		dombooking.StatusCompleted: {dombooking.StatusSearching, dombooking.StatusAssigned, dombooking.StatusConfirmed, dombooking.StatusCompleted},
		dombooking.StatusCancelled: {dombooking.StatusCancelled},
		dombooking.StatusNoShow:    {dombooking.StatusSearching, dombooking.StatusAssigned, dombooking.StatusConfirmed, dombooking.StatusNoShow},
	}

	path, ok := steps[status]
	if !ok {
		panic("BuildInStatus: unsupported target status " + status.String())
	}

	now := b.Now
	for _, next := range path {
		now = now.Add(time.Minute)
		switch next {
		case dombooking.StatusSearching:
			current, _, err = current.StartSearch(now)
		case dombooking.StatusAssigned:
			current, _, err = current.Assign(uuid.New(), now)
		case dombooking.StatusConfirmed:
			current, _, err = current.Confirm(now)
		case dombooking.StatusCompleted:
			current, _, err = current.Complete(now)
		case dombooking.StatusCancelled:
			current, _, err = current.Cancel(dombooking.ActorClient, "no longer needed", now)
		case dombooking.StatusNoShow:
			current, _, err = current.MarkNoShow(now)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		Kind:        b.Kind,
		ScheduledAt: b.ScheduledAt,
		Location:    b.Location,
		Details:     b.Details,
	}
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	id := uuid.New()
	return &queries.BookingView{
		ID:               id,
		ClientID:         b.ClientID,
		Kind:             b.Kind,
		ScheduledAt:      b.ScheduledAt,
		Location:         b.Location,
		Details:          b.Details,
		Status:           dombooking.StatusRequested.String(),
		BaseCents:        b.BaseCents,
		PlatformFeeCents: b.PlatformFeeCents,
		TaxCents:         b.TaxCents,
		PayableCents:     b.PayableCents(),
		History: []queries.StatusStampView{
			{Status: dombooking.StatusRequested.String(), At: b.Now},
		},
		CreatedAt: b.Now,
		UpdatedAt: b.Now,
	}
}

func (b *BookingBuilder) BuildListItem() *queries.BookingListItem {
	return &queries.BookingListItem{
		ID:           uuid.New(),
		Kind:         b.Kind,
		ScheduledAt:  b.ScheduledAt,
		Location:     b.Location,
		Status:       dombooking.StatusRequested.String(),
		PayableCents: b.PayableCents(),
		CreatedAt:    b.Now,
	}
}

// Fluent builder methods
func (b *BookingBuilder) WithClientID(id uuid.UUID) *BookingBuilder {
	b.ClientID = id
	return b
}

func (b *BookingBuilder) WithKind(kind string) *BookingBuilder {
	b.Kind = kind
	return b
}

func (b *BookingBuilder) WithScheduledAt(at time.Time) *BookingBuilder {
	b.ScheduledAt = at
	return b
}

func (b *BookingBuilder) WithLocation(location string) *BookingBuilder {
	b.Location = location
	return b
}

func (b *BookingBuilder) WithPayable(base, fee, tax int64) *BookingBuilder {
	b.BaseCents = base
	b.PlatformFeeCents = fee
	b.TaxCents = tax
	return b
}
