package commands

import (
	"context"
	"encoding/json"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/domain/catalog"
	"homecare-booking/internal/infra"
	"homecare-booking/internal/infra/db"
	"homecare-booking/internal/pkg/clock"
	"homecare-booking/internal/pkg/errs"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// staleRetryLimit bounds how often a lifecycle command re-reads and re-applies
// after losing the conditional write to a concurrent transition.
const staleRetryLimit = 3

type BookingRepository interface {
	Create(ctx context.Context, dbtx db.DBTX, b *booking.Booking) error
	UpdateTransition(ctx context.Context, dbtx db.DBTX, b *booking.Booking, expected booking.Status) error
	FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*booking.Booking, error)
	FindByIDForClient(ctx context.Context, dbtx db.DBTX, id, clientID uuid.UUID) (*booking.Booking, error)
}

type CatalogRepository interface {
	FindActiveByKind(ctx context.Context, dbtx db.DBTX, kind booking.ServiceKind) (*catalog.Entry, error)
}

type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, dbtx db.DBTX, evt booking.Event) error
}

// OutboxNotifier nudges the dispatcher after a commit so delivery does not
// wait for the next poll tick.
type OutboxNotifier interface {
	Wake()
}

type CreateBookingInput struct {
	ClientID    uuid.UUID
	Kind        string
	ScheduledAt time.Time
	Location    string
	Details     json.RawMessage
}

type CancelBookingInput struct {
	BookingID uuid.UUID
	ClientID  uuid.UUID
	By        string
	Reason    string
}

type ReviewBookingInput struct {
	BookingID uuid.UUID
	ClientID  uuid.UUID
	Score     int
	Review    string
	Aspects   map[string]int
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (uuid.UUID, error)
	CancelBooking(ctx context.Context, in CancelBookingInput) error
	ReviewBooking(ctx context.Context, in ReviewBookingInput) error

	StartSearch(ctx context.Context, bookingID uuid.UUID) error
	AssignCaregiver(ctx context.Context, bookingID, caregiverID uuid.UUID) error
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID) error
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) error
	MarkNoShow(ctx context.Context, bookingID uuid.UUID) error
}

type bookingCommandsImpl struct {
	pool     *pgxpool.Pool
	bookings BookingRepository
	catalog  CatalogRepository
	outbox   OutboxEnqueuer
	notifier OutboxNotifier
	pricing  catalog.PriceCalculator
	factory  *booking.Factory
	clock    clock.Clock
}

func NewBookingCommands(
	pool *pgxpool.Pool,
	bookings BookingRepository,
	catalogRepo CatalogRepository,
	outbox OutboxEnqueuer,
	notifier OutboxNotifier,
	pricing catalog.PriceCalculator,
	clk clock.Clock,
) BookingCommands {
	return &bookingCommandsImpl{
		pool:     pool,
		bookings: bookings,
		catalog:  catalogRepo,
		outbox:   outbox,
		notifier: notifier,
		pricing:  pricing,
		factory:  booking.NewFactory(clk),
		clock:    clk,
	}
}

func (c *bookingCommandsImpl) CreateBooking(ctx context.Context, in CreateBookingInput) (uuid.UUID, error) {
	kind := booking.ServiceKind(in.Kind)
	if !kind.IsValid() {
		return uuid.Nil, errs.Mark(booking.ErrInvalidKind, errs.ErrValidation)
	}

	location, err := booking.NewLocation(in.Location)
	if err != nil {
		return uuid.Nil, errs.Mark(err, errs.ErrValidation)
	}

	entry, err := c.catalog.FindActiveByKind(ctx, c.pool, kind)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return uuid.Nil, errs.Mark(err, errs.ErrCatalogEntryNotFound)
		}
		return uuid.Nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	quote := c.pricing.QuoteFor(entry, in.ScheduledAt)
	snapshot, err := quote.Snapshot()
	if err != nil {
		return uuid.Nil, errs.Wrap(err, "price snapshot inconsistent")
	}

	b, err := c.factory.CreateBooking(in.ClientID, kind, in.ScheduledAt, location, in.Details, snapshot)
	if err != nil {
		return uuid.Nil, errs.Mark(err, errs.ErrValidation)
	}

	_, err = db.RunInTx(ctx, c.pool, func(tx db.DBTX) (struct{}, error) {
		if err := c.bookings.Create(ctx, tx, b); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.outbox.Enqueue(ctx, tx, b.CreatedEvent())
	})
	if err != nil {
		return uuid.Nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	c.notifier.Wake()
	return b.ID(), nil
}

func (c *bookingCommandsImpl) CancelBooking(ctx context.Context, in CancelBookingInput) error {
	return c.applyClientTransition(ctx, in.BookingID, in.ClientID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.Cancel(booking.Actor(in.By), in.Reason, c.clock.Now())
	})
}

func (c *bookingCommandsImpl) ReviewBooking(ctx context.Context, in ReviewBookingInput) error {
	now := c.clock.Now()
	rating, err := booking.NewRating(in.Score, in.Review, in.Aspects, now)
	if err != nil {
		return errs.Mark(err, errs.ErrValidation)
	}
	return c.applyClientTransition(ctx, in.BookingID, in.ClientID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.AttachReview(rating, now)
	})
}

func (c *bookingCommandsImpl) StartSearch(ctx context.Context, bookingID uuid.UUID) error {
	return c.applyTransition(ctx, bookingID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.StartSearch(c.clock.Now())
	})
}

func (c *bookingCommandsImpl) AssignCaregiver(ctx context.Context, bookingID, caregiverID uuid.UUID) error {
	if caregiverID == uuid.Nil {
		return errs.Mark(booking.ErrMissingCaregiver, errs.ErrValidation)
	}
	return c.applyTransition(ctx, bookingID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.Assign(caregiverID, c.clock.Now())
	})
}

func (c *bookingCommandsImpl) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) error {
	return c.applyTransition(ctx, bookingID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.Confirm(c.clock.Now())
	})
}

func (c *bookingCommandsImpl) CompleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	return c.applyTransition(ctx, bookingID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.Complete(c.clock.Now())
	})
}

func (c *bookingCommandsImpl) MarkNoShow(ctx context.Context, bookingID uuid.UUID) error {
	return c.applyTransition(ctx, bookingID, func(b *booking.Booking) (*booking.Booking, booking.Event, error) {
		return b.MarkNoShow(c.clock.Now())
	})
}

type mutateFunc func(b *booking.Booking) (*booking.Booking, booking.Event, error)

func (c *bookingCommandsImpl) applyTransition(ctx context.Context, bookingID uuid.UUID, mutate mutateFunc) error {
	return c.applyWithRetry(ctx, func(tx db.DBTX) (*booking.Booking, error) {
		return c.bookings.FindByID(ctx, tx, bookingID)
	}, mutate)
}

func (c *bookingCommandsImpl) applyClientTransition(ctx context.Context, bookingID, clientID uuid.UUID, mutate mutateFunc) error {
	return c.applyWithRetry(ctx, func(tx db.DBTX) (*booking.Booking, error) {
		return c.bookings.FindByIDForClient(ctx, tx, bookingID, clientID)
	}, mutate)
}

// applyWithRetry runs the read-mutate-conditional-write cycle. A stale write
// means another transition landed first; the cycle re-reads so the next
// attempt validates against the winner's state instead of blind-retrying.
func (c *bookingCommandsImpl) applyWithRetry(ctx context.Context, read func(tx db.DBTX) (*booking.Booking, error), mutate mutateFunc) error {
	var lastErr error
	for attempt := 0; attempt < staleRetryLimit; attempt++ {
		current, err := read(c.pool)
		if err != nil {
			return mapRepoErr(err)
		}

		next, evt, err := mutate(current)
		if err != nil {
			return mapDomainErr(err)
		}

		_, err = db.RunInTx(ctx, c.pool, func(tx db.DBTX) (struct{}, error) {
			if err := c.bookings.UpdateTransition(ctx, tx, next, current.Status()); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, c.outbox.Enqueue(ctx, tx, evt)
		})
		if err == nil {
			c.notifier.Wake()
			return nil
		}
		if !infra.IsKind(err, infra.KindStaleState) {
			return mapRepoErr(err)
		}
		lastErr = err
	}
	return errs.Mark(lastErr, errs.ErrStaleState)
}

func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidTransition):
		return errs.Mark(err, errs.ErrInvalidStateTransition)
	case errors.Is(err, booking.ErrDuplicateReview):
		return errs.Mark(err, errs.ErrDuplicateReview)
	default:
		return errs.Mark(err, errs.ErrValidation)
	}
}

func mapRepoErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, errs.ErrBookingNotFound)
	case infra.IsKind(err, infra.KindStaleState):
		return errs.Mark(err, errs.ErrStaleState)
	case infra.IsKind(err, infra.KindUnavailable):
		return errs.Mark(err, errs.ErrStoreUnavailable)
	default:
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
}
