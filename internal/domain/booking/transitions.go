package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is the sentinel matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError names the current and requested states of a rejected move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func newTransitionError(from, to Status) error {
	return &TransitionError{From: from, To: to}
}

// transitionTo validates the move against the lifecycle graph and returns a
// fresh snapshot with status and history advanced. The receiver is unchanged.
func (b *Booking) transitionTo(next Status, now time.Time) (*Booking, error) {
	if !CanTransition(b.status, next) {
		return nil, newTransitionError(b.status, next)
	}
	out := b.clone()
	out.status = next
	out.history = append(out.history, StatusStamp{Status: next, At: now})
	out.updatedAt = now
	return out, nil
}

// StartSearch moves a freshly requested booking into caregiver search.
func (b *Booking) StartSearch(now time.Time) (*Booking, Event, error) {
	out, err := b.transitionTo(StatusSearching, now)
	if err != nil {
		return nil, Event{}, err
	}
	return out, out.newEvent(EventSearching, now, nil), nil
}

// Assign attaches a caregiver found by the dispatch collaborator.
func (b *Booking) Assign(caregiverID uuid.UUID, now time.Time) (*Booking, Event, error) {
	if caregiverID == uuid.Nil {
		return nil, Event{}, ErrMissingCaregiver
	}
	out, err := b.transitionTo(StatusAssigned, now)
	if err != nil {
		return nil, Event{}, err
	}
	out.caregiverID = &caregiverID
	return out, out.newEvent(EventAssigned, now, map[string]any{
		"caregiver_id": caregiverID.String(),
	}), nil
}

func (b *Booking) Confirm(now time.Time) (*Booking, Event, error) {
	out, err := b.transitionTo(StatusConfirmed, now)
	if err != nil {
		return nil, Event{}, err
	}
	return out, out.newEvent(EventConfirmed, now, nil), nil
}

func (b *Booking) Complete(now time.Time) (*Booking, Event, error) {
	out, err := b.transitionTo(StatusCompleted, now)
	if err != nil {
		return nil, Event{}, err
	}
	return out, out.newEvent(EventCompleted, now, map[string]any{
		"payable_cents": out.price.Payable.Cents(),
	}), nil
}

func (b *Booking) MarkNoShow(now time.Time) (*Booking, Event, error) {
	out, err := b.transitionTo(StatusNoShow, now)
	if err != nil {
		return nil, Event{}, err
	}
	return out, out.newEvent(EventNoShow, now, nil), nil
}

// Cancel moves the booking into CANCELLED and records the time-tiered
// refund split. refund + fee always equals the payable snapshot.
func (b *Booking) Cancel(by Actor, reason string, now time.Time) (*Booking, Event, error) {
	if !by.IsValid() {
		return nil, Event{}, ErrInvalidActor
	}
	if reason == "" {
		return nil, Event{}, ErrEmptyReason
	}

	out, err := b.transitionTo(StatusCancelled, now)
	if err != nil {
		return nil, Event{}, err
	}

	split := RefundForCancellation(b.price.Payable, b.scheduledAt, now)
	out.cancel = &Cancellation{
		By:     by,
		Reason: reason,
		At:     now,
		Refund: split.Refund,
		Fee:    split.Fee,
	}

	return out, out.newEvent(EventCancelled, now, map[string]any{
		"cancelled_by": string(by),
		"refund_cents": split.Refund.Cents(),
		"fee_cents":    split.Fee.Cents(),
	}), nil
}

// AttachReview is the guarded sub-transition on COMPLETED bookings.
// At most one rating may ever attach.
func (b *Booking) AttachReview(rating Rating, now time.Time) (*Booking, Event, error) {
	if b.status != StatusCompleted {
		return nil, Event{}, newTransitionError(b.status, StatusCompleted)
	}
	if b.rating != nil {
		return nil, Event{}, ErrDuplicateReview
	}

	out := b.clone()
	out.rating = &rating
	out.updatedAt = now

	return out, out.newEvent(EventReviewed, now, map[string]any{
		"score": rating.Score(),
	}), nil
}
