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

type factoryCase struct {
	name   string
	mutate func(*builder.BookingBuilder)
	errIs  error
}

func TestCreateBooking(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		b := builder.NewBookingBuilder()
		actual, err := b.BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		assert.NotEqual(t, uuid.Nil, actual.ID())
		assert.Equal(t, b.ClientID, actual.ClientID())
		assert.Equal(t, booking.StatusRequested, actual.Status())
		assert.Nil(t, actual.CaregiverID())
		assert.Nil(t, actual.Cancellation())
		assert.Nil(t, actual.Rating())
		assert.Equal(t, actual.CreatedAt(), actual.UpdatedAt())

		require.Len(t, actual.History(), 1)
		assert.Equal(t, booking.StatusRequested, actual.History()[0].Status)

		assert.Equal(t, int64(1357), actual.Price().Payable.Cents())
	})

	t.Run("validation", func(t *testing.T) {
		runFactoryCases(t, []factoryCase{
			{
				name:   "missing client",
				mutate: func(b *builder.BookingBuilder) { b.ClientID = uuid.Nil },
				errIs:  booking.ErrMissingClient,
			},
			{
				name:   "unknown service kind",
				mutate: func(b *builder.BookingBuilder) { b.Kind = "palmistry" },
				errIs:  booking.ErrInvalidKind,
			},
			{
				name:   "schedule in the past",
				mutate: func(b *builder.BookingBuilder) { b.ScheduledAt = b.Now.Add(-time.Hour) },
				errIs:  booking.ErrScheduleInPast,
			},
			{
				name:   "schedule exactly now",
				mutate: func(b *builder.BookingBuilder) { b.ScheduledAt = b.Now },
				errIs:  booking.ErrScheduleInPast,
			},
			{
				name:   "empty location",
				mutate: func(b *builder.BookingBuilder) { b.Location = "   " },
				errIs:  booking.ErrEmptyLocation,
			},
		})
	})

	t.Run("UUID uniqueness", func(t *testing.T) {
		first, err1 := builder.NewBookingBuilder().BuildDomain()
		second, err2 := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err1)
		require.NoError(t, err2)

		assert.NotEqual(t, first.ID(), second.ID())
	})
}

func TestBookingGetters(t *testing.T) {
	t.Run("mutating returned history does not affect the aggregate", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		history := b.History()
		history[0].Status = booking.StatusCancelled

		assert.Equal(t, booking.StatusRequested, b.History()[0].Status)
	})

	t.Run("mutating returned details does not affect the aggregate", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		details := b.Details()
		require.NotEmpty(t, details)
		details[0] = 'X'

		assert.NotEqual(t, byte('X'), b.Details()[0])
	})
}

func runFactoryCases(t *testing.T, cases []factoryCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			actual, err := builder.NewBookingBuilder().With(c.mutate).BuildDomain()
			if c.errIs != nil {
				require.ErrorIs(t, err, c.errIs)
				assert.Nil(t, actual)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, actual)
		})
	}
}
