package booking

import (
	"errors"
	"strings"
	"time"
)

type Money struct {
	cents int64
}

func NewMoney(cents int64) Money {
	return Money{cents: cents}
}

func NewMoneyChecked(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Units() float64 {
	return float64(m.cents) / 100.0
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Sub(other Money) Money {
	return Money{cents: m.cents - other.cents}
}

func (m Money) Half() Money {
	return Money{cents: m.cents / 2}
}

func (m Money) IsZero() bool {
	return m.cents == 0
}

// PriceSnapshot is the payable breakdown frozen at booking creation.
// It is never recomputed, regardless of later catalog changes.
type PriceSnapshot struct {
	Base        Money
	PlatformFee Money
	Tax         Money
	Payable     Money
}

func NewPriceSnapshot(base, platformFee, tax, payable Money) (PriceSnapshot, error) {
	if base.Cents() < 0 || platformFee.Cents() < 0 || tax.Cents() < 0 {
		return PriceSnapshot{}, errors.New("price components cannot be negative")
	}
	if base.Add(platformFee).Add(tax) != payable {
		return PriceSnapshot{}, errors.New("payable must equal base + platform fee + tax")
	}
	return PriceSnapshot{Base: base, PlatformFee: platformFee, Tax: tax, Payable: payable}, nil
}

// Cancellation records the outcome of a transition into CANCELLED.
type Cancellation struct {
	By     Actor
	Reason string
	At     time.Time
	Refund Money
	Fee    Money
}

type Location struct {
	value string
}

const MaxLocationLength = 500

func NewLocation(value string) (Location, error) {
	t := strings.TrimSpace(value)
	if t == "" {
		return Location{}, ErrEmptyLocation
	}
	if len(t) > MaxLocationLength {
		return Location{}, ErrLocationTooLong
	}
	return Location{value: t}, nil
}

func (l Location) String() string {
	return l.value
}

// ReconstructLocation rehydrates a stored value without re-validation.
func ReconstructLocation(value string) Location {
	return Location{value: value}
}

// StatusStamp is one entry of the append-only status history.
type StatusStamp struct {
	Status Status
	At     time.Time
}
