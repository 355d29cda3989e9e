package catalog

import (
	"math"
	"time"

	"homecare-booking/internal/domain/booking"
)

// Pricing constants for the single marketplace fee formula.
const (
	platformFeePercent = 15
	taxPercent         = 18
)

// Quote is the computed payable breakdown for one booking. The orchestrator
// snapshots it into the booking at creation; it is never recomputed.
type Quote struct {
	Base        booking.Money
	PlatformFee booking.Money
	Tax         booking.Money
	Payable     booking.Money
	Currency    string
}

func (q Quote) Snapshot() (booking.PriceSnapshot, error) {
	return booking.NewPriceSnapshot(q.Base, q.PlatformFee, q.Tax, q.Payable)
}

type PriceCalculator interface {
	QuoteFor(entry *Entry, at time.Time) Quote
}

// StandardPriceCalculator applies the marketplace formula:
// surge-adjusted base, 15% platform fee, 18% tax on base + fee.
// All arithmetic is in integer cents, rounded half away from zero.
type StandardPriceCalculator struct{}

func NewStandardPriceCalculator() *StandardPriceCalculator {
	return &StandardPriceCalculator{}
}

func (c *StandardPriceCalculator) QuoteFor(entry *Entry, at time.Time) Quote {
	base := entry.BasePrice().Cents()

	minuteOfDay := at.Hour()*60 + at.Minute()
	for _, w := range entry.SurgeWindows() {
		if w.contains(minuteOfDay) {
			base = roundCents(float64(base) * w.Multiplier)
			break
		}
	}

	fee := base * platformFeePercent / 100
	tax := (base + fee) * taxPercent / 100
	payable := base + fee + tax

	return Quote{
		Base:        booking.NewMoney(base),
		PlatformFee: booking.NewMoney(fee),
		Tax:         booking.NewMoney(tax),
		Payable:     booking.NewMoney(payable),
		Currency:    entry.Currency(),
	}
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
