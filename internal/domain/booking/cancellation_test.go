//go:build unit

package booking_test

import (
	"testing"
	"time"

	"homecare-booking/internal/domain/booking"

	"github.com/stretchr/testify/assert"
)

func TestRefundForCancellation(t *testing.T) {
	scheduledAt := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	payable := booking.NewMoney(1357)

	cases := []struct {
		name        string
		hoursBefore time.Duration
		wantRefund  int64
		wantFee     int64
	}{
		{name: "well before the full-refund boundary", hoursBefore: 72 * time.Hour, wantRefund: 1357, wantFee: 0},
		{name: "exactly 24 hours gets the full refund", hoursBefore: 24 * time.Hour, wantRefund: 1357, wantFee: 0},
		{name: "just under 24 hours drops to half", hoursBefore: 24*time.Hour - time.Second, wantRefund: 678, wantFee: 679},
		{name: "mid half-refund tier", hoursBefore: 10 * time.Hour, wantRefund: 678, wantFee: 679},
		{name: "exactly 4 hours stays at half", hoursBefore: 4 * time.Hour, wantRefund: 678, wantFee: 679},
		{name: "just under 4 hours forfeits everything", hoursBefore: 4*time.Hour - time.Second, wantRefund: 0, wantFee: 1357},
		{name: "after the scheduled time", hoursBefore: -time.Hour, wantRefund: 0, wantFee: 1357},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			now := scheduledAt.Add(-c.hoursBefore)
			split := booking.RefundForCancellation(payable, scheduledAt, now)

			assert.Equal(t, c.wantRefund, split.Refund.Cents())
			assert.Equal(t, c.wantFee, split.Fee.Cents())
			assert.Equal(t, payable.Cents(), split.Refund.Cents()+split.Fee.Cents())
		})
	}

	t.Run("even amounts split exactly", func(t *testing.T) {
		now := scheduledAt.Add(-10 * time.Hour)
		split := booking.RefundForCancellation(booking.NewMoney(135700), scheduledAt, now)

		assert.Equal(t, int64(67850), split.Refund.Cents())
		assert.Equal(t, int64(67850), split.Fee.Cents())
	})

	t.Run("zero payable yields a zero split", func(t *testing.T) {
		now := scheduledAt.Add(-10 * time.Hour)
		split := booking.RefundForCancellation(booking.NewMoney(0), scheduledAt, now)

		assert.True(t, split.Refund.IsZero())
		assert.True(t, split.Fee.IsZero())
	})
}
