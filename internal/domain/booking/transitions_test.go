//go:build unit

package booking_test

import (
	"testing"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionGraph(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	apply := func(b *booking.Booking, to booking.Status) (*booking.Booking, booking.Event, error) {
		switch to {
		case booking.StatusSearching:
			return b.StartSearch(now)
		case booking.StatusAssigned:
			return b.Assign(uuid.New(), now)
		case booking.StatusConfirmed:
			return b.Confirm(now)
		case booking.StatusCompleted:
			return b.Complete(now)
		case booking.StatusCancelled:
			return b.Cancel(booking.ActorClient, "change of plans", now)
		case booking.StatusNoShow:
			return b.MarkNoShow(now)
		default:
			t.Fatalf("unknown target status %s", to)
			return nil, booking.Event{}, nil
		}
	}

	allowed := map[booking.Status][]booking.Status{
		booking.StatusRequested: {booking.StatusSearching, booking.StatusCancelled},
		booking.StatusSearching: {booking.StatusAssigned, booking.StatusCancelled},
		booking.StatusAssigned:  {booking.StatusConfirmed, booking.StatusCancelled},
		booking.StatusConfirmed: {booking.StatusCompleted, booking.StatusCancelled, booking.StatusNoShow},
		booking.StatusCompleted: {},
		booking.StatusCancelled: {},
		booking.StatusNoShow:    {},
	}

	targets := []booking.Status{
		booking.StatusSearching, booking.StatusAssigned, booking.StatusConfirmed,
		booking.StatusCompleted, booking.StatusCancelled, booking.StatusNoShow,
	}

	for from, allowedTargets := range allowed {
		allowedSet := make(map[booking.Status]bool, len(allowedTargets))
		for _, to := range allowedTargets {
			allowedSet[to] = true
		}

		for _, to := range targets {
			t.Run(from.String()+" to "+to.String(), func(t *testing.T) {
				b, err := builder.NewBookingBuilder().BuildInStatus(from)
				require.NoError(t, err)

				next, evt, err := apply(b, to)
				if !allowedSet[to] {
					require.ErrorIs(t, err, booking.ErrInvalidTransition)
					assert.Nil(t, next)
					// Rejected transitions leave the booking untouched.
					assert.Equal(t, from, b.Status())
					return
				}

				require.NoError(t, err)
				require.NotNil(t, next)
				assert.Equal(t, to, next.Status())
				assert.Equal(t, to, evt.Status)
				assert.Equal(t, b.ID(), evt.BookingID)

				// The receiver is never mutated.
				assert.Equal(t, from, b.Status())
				assert.Len(t, next.History(), len(b.History())+1)
				assert.Equal(t, to, next.History()[len(next.History())-1].Status)
			})
		}
	}
}

func TestAssign(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("records the caregiver", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildInStatus(booking.StatusSearching)
		require.NoError(t, err)

		caregiverID := uuid.New()
		next, evt, err := b.Assign(caregiverID, now)
		require.NoError(t, err)

		require.NotNil(t, next.CaregiverID())
		assert.Equal(t, caregiverID, *next.CaregiverID())
		assert.Equal(t, caregiverID.String(), evt.Payload["caregiver_id"])
	})

	t.Run("rejects a nil caregiver", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildInStatus(booking.StatusSearching)
		require.NoError(t, err)

		_, _, err = b.Assign(uuid.Nil, now)
		require.ErrorIs(t, err, booking.ErrMissingCaregiver)
	})
}

func TestCancel(t *testing.T) {
	t.Run("requires a reason", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		_, _, err = b.Cancel(booking.ActorClient, "", time.Now())
		require.ErrorIs(t, err, booking.ErrEmptyReason)
	})

	t.Run("requires a known actor", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		_, _, err = b.Cancel(booking.Actor("stranger"), "whatever", time.Now())
		require.ErrorIs(t, err, booking.ErrInvalidActor)
	})

	t.Run("records the refund split in the event", func(t *testing.T) {
		bb := builder.NewBookingBuilder()
		b, err := bb.BuildDomain()
		require.NoError(t, err)

		// 10 hours before the visit lands in the half-refund tier.
		now := bb.ScheduledAt.Add(-10 * time.Hour)
		next, evt, err := b.Cancel(booking.ActorClient, "feeling better", now)
		require.NoError(t, err)

		cancel := next.Cancellation()
		require.NotNil(t, cancel)
		assert.Equal(t, booking.ActorClient, cancel.By)
		assert.Equal(t, "feeling better", cancel.Reason)
		assert.Equal(t, bb.PayableCents(), cancel.Refund.Cents()+cancel.Fee.Cents())

		assert.Equal(t, "client", evt.Payload["cancelled_by"])
		assert.Equal(t, cancel.Refund.Cents(), evt.Payload["refund_cents"])
		assert.Equal(t, cancel.Fee.Cents(), evt.Payload["fee_cents"])
	})
}

func TestAttachReview(t *testing.T) {
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

	newRating := func(t *testing.T) booking.Rating {
		t.Helper()
		rating, err := booking.NewRating(5, "wonderful care", nil, now)
		require.NoError(t, err)
		return rating
	}

	t.Run("attaches once on a completed booking", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildInStatus(booking.StatusCompleted)
		require.NoError(t, err)

		next, evt, err := b.AttachReview(newRating(t), now)
		require.NoError(t, err)

		require.NotNil(t, next.Rating())
		assert.Equal(t, 5, next.Rating().Score())
		assert.True(t, next.HasReview())
		assert.Equal(t, booking.EventReviewed, evt.Name)

		// A review is not a status change.
		assert.Equal(t, booking.StatusCompleted, next.Status())
		assert.Len(t, next.History(), len(b.History()))
	})

	t.Run("rejects a second review", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildInStatus(booking.StatusCompleted)
		require.NoError(t, err)

		reviewed, _, err := b.AttachReview(newRating(t), now)
		require.NoError(t, err)

		_, _, err = reviewed.AttachReview(newRating(t), now)
		require.ErrorIs(t, err, booking.ErrDuplicateReview)
	})

	t.Run("rejects reviews before completion", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildInStatus(booking.StatusConfirmed)
		require.NoError(t, err)

		_, _, err = b.AttachReview(newRating(t), now)
		require.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}
