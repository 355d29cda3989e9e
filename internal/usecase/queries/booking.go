package queries

import (
	"context"
	"encoding/json"
	"time"

	"homecare-booking/internal/infra"
	"homecare-booking/internal/pkg/clock"
	"homecare-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

type CancellationView struct {
	By          string    `json:"cancelledBy"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"cancelledAt"`
	RefundCents int64     `json:"refundCents"`
	FeeCents    int64     `json:"feeCents"`
}

type RatingView struct {
	Score   int            `json:"score"`
	Review  string         `json:"review,omitempty"`
	Aspects map[string]int `json:"aspects,omitempty"`
	At      time.Time      `json:"ratedAt"`
}

type StatusStampView struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type BookingView struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	CaregiverID      *uuid.UUID
	Kind             string
	ScheduledAt      time.Time
	Location         string
	Details          json.RawMessage
	Status           string
	BaseCents        int64
	PlatformFeeCents int64
	TaxCents         int64
	PayableCents     int64
	Cancellation     *CancellationView
	Rating           *RatingView
	History          []StatusStampView
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type BookingListItem struct {
	ID           uuid.UUID
	Kind         string
	ScheduledAt  time.Time
	Location     string
	Status       string
	PayableCents int64
	CreatedAt    time.Time
}

type BookingReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	FindByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*BookingView, error)
	FindUpcomingByClient(ctx context.Context, clientID uuid.UUID, after time.Time) ([]*BookingListItem, error)
}

type BookingQueries interface {
	// GetBooking is client-scoped: a booking owned by someone else reads as
	// not found, never as forbidden.
	GetBooking(ctx context.Context, id, clientID uuid.UUID) (*BookingView, error)
	// GetBookingSystem bypasses ownership for internal read-after-write.
	GetBookingSystem(ctx context.Context, id uuid.UUID) (*BookingView, error)
	ListUpcoming(ctx context.Context, clientID uuid.UUID) ([]*BookingListItem, error)
}

type bookingQueriesImpl struct {
	store BookingReadStore
	clock clock.Clock
}

func NewBookingQueries(store BookingReadStore, clk clock.Clock) BookingQueries {
	return &bookingQueriesImpl{store: store, clock: clk}
}

func (q *bookingQueriesImpl) GetBooking(ctx context.Context, id, clientID uuid.UUID) (*BookingView, error) {
	view, err := q.store.FindByIDForClient(ctx, id, clientID)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return view, nil
}

func (q *bookingQueriesImpl) GetBookingSystem(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return view, nil
}

func (q *bookingQueriesImpl) ListUpcoming(ctx context.Context, clientID uuid.UUID) ([]*BookingListItem, error) {
	items, err := q.store.FindUpcomingByClient(ctx, clientID, q.clock.Now())
	if err != nil {
		return nil, errs.Wrap(err, "failed to list upcoming bookings")
	}
	return items, nil
}

func mapReadErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return errs.ErrBookingNotFound
	}
	if infra.IsKind(err, infra.KindUnavailable) {
		return errs.Mark(err, errs.ErrStoreUnavailable)
	}
	return errs.Wrap(err, "failed to read booking")
}
