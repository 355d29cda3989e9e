package catalog

import (
	"errors"

	"homecare-booking/internal/domain/booking"

	"github.com/google/uuid"
)

var (
	ErrInvalidBasePrice     = errors.New("base price cannot be negative")
	ErrInvalidMultiplier    = errors.New("surge multiplier must be at least 1")
	ErrInvalidWindow        = errors.New("surge window start must be before end")
	ErrOverlappingWindows   = errors.New("surge windows must not overlap")
	ErrUnknownCurrency      = errors.New("unknown currency code")
	ErrInactiveCatalogEntry = errors.New("catalog entry is not active")
)

// SurgeWindow is a time-of-day range with a price multiplier, expressed in
// minutes since midnight. End is exclusive.
type SurgeWindow struct {
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	Multiplier  float64 `json:"multiplier"`
}

func (w SurgeWindow) contains(minuteOfDay int) bool {
	return minuteOfDay >= w.StartMinute && minuteOfDay < w.EndMinute
}

func (w SurgeWindow) overlaps(other SurgeWindow) bool {
	return w.StartMinute < other.EndMinute && other.StartMinute < w.EndMinute
}

// Entry is a read-only catalog value owned by the catalog collaborator.
// This core validates it at construction and never mutates it.
type Entry struct {
	id           uuid.UUID
	kind         booking.ServiceKind
	basePrice    booking.Money
	currency     string
	surgeWindows []SurgeWindow
	active       bool
}

// NewEntry rejects overlapping surge windows outright rather than relying
// on catalog ordering to break ties.
func NewEntry(
	id uuid.UUID,
	kind booking.ServiceKind,
	basePriceCents int64,
	currency string,
	windows []SurgeWindow,
	active bool,
) (*Entry, error) {
	if !kind.IsValid() {
		return nil, booking.ErrInvalidKind
	}
	if basePriceCents < 0 {
		return nil, ErrInvalidBasePrice
	}
	if len(currency) != 3 {
		return nil, ErrUnknownCurrency
	}

	for i, w := range windows {
		if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
			return nil, ErrInvalidWindow
		}
		if w.Multiplier < 1 {
			return nil, ErrInvalidMultiplier
		}
		for _, prev := range windows[:i] {
			if w.overlaps(prev) {
				return nil, ErrOverlappingWindows
			}
		}
	}

	copied := make([]SurgeWindow, len(windows))
	copy(copied, windows)

	return &Entry{
		id:           id,
		kind:         kind,
		basePrice:    booking.NewMoney(basePriceCents),
		currency:     currency,
		surgeWindows: copied,
		active:       active,
	}, nil
}

func (e *Entry) ID() uuid.UUID                 { return e.id }
func (e *Entry) Kind() booking.ServiceKind     { return e.kind }
func (e *Entry) BasePrice() booking.Money      { return e.basePrice }
func (e *Entry) Currency() string              { return e.currency }
func (e *Entry) Active() bool                  { return e.active }

func (e *Entry) SurgeWindows() []SurgeWindow {
	out := make([]SurgeWindow, len(e.surgeWindows))
	copy(out, e.surgeWindows)
	return out
}
