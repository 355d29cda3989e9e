package booking

import "time"

// Refund tiers, keyed on hours between cancellation and the scheduled visit.
// Boundary values fall into the higher-refund tier.
const (
	FullRefundWindow = 24 * time.Hour
	HalfRefundWindow = 4 * time.Hour
)

type RefundSplit struct {
	Refund Money
	Fee    Money
}

// RefundForCancellation is a pure function of the payable amount and the
// time remaining before the visit. The invariant Refund + Fee == payable
// holds exactly in cents.
func RefundForCancellation(payable Money, scheduledAt, now time.Time) RefundSplit {
	remaining := scheduledAt.Sub(now)

	switch {
	case remaining >= FullRefundWindow:
		return RefundSplit{Refund: payable, Fee: NewMoney(0)}
	case remaining >= HalfRefundWindow:
		refund := payable.Half()
		return RefundSplit{Refund: refund, Fee: payable.Sub(refund)}
	default:
		return RefundSplit{Refund: NewMoney(0), Fee: payable}
	}
}
