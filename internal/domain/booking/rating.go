package booking

import (
	"strings"
	"time"
)

const (
	MinScore         = 1
	MaxScore         = 5
	MaxReviewLength  = 1000
	maxAspectEntries = 4
)

// aspect names accepted as sub-dimension scores
var knownAspects = map[string]struct{}{
	"professionalism": {},
	"punctuality":     {},
	"communication":   {},
	"hygiene":         {},
}

// Rating is the one-time review attached to a completed booking.
type Rating struct {
	score   int
	review  string
	aspects map[string]int
	at      time.Time
}

func NewRating(score int, review string, aspects map[string]int, at time.Time) (Rating, error) {
	if score < MinScore || score > MaxScore {
		return Rating{}, ErrInvalidScore
	}

	trimmed := strings.TrimSpace(review)
	if len(trimmed) > MaxReviewLength {
		return Rating{}, ErrReviewTooLong
	}

	if len(aspects) > maxAspectEntries {
		return Rating{}, ErrTooManyAspects
	}
	var copied map[string]int
	if len(aspects) > 0 {
		copied = make(map[string]int, len(aspects))
		for name, v := range aspects {
			if _, ok := knownAspects[name]; !ok {
				return Rating{}, ErrUnknownAspect
			}
			if v < MinScore || v > MaxScore {
				return Rating{}, ErrInvalidScore
			}
			copied[name] = v
		}
	}

	return Rating{score: score, review: trimmed, aspects: copied, at: at}, nil
}

// ReconstructRating rehydrates a stored rating without re-validation.
func ReconstructRating(score int, review string, aspects map[string]int, at time.Time) Rating {
	return Rating{score: score, review: review, aspects: aspects, at: at}
}

func (r Rating) Score() int     { return r.score }
func (r Rating) Review() string { return r.review }
func (r Rating) At() time.Time  { return r.at }

func (r Rating) Aspects() map[string]int {
	if r.aspects == nil {
		return nil
	}
	out := make(map[string]int, len(r.aspects))
	for k, v := range r.aspects {
		out[k] = v
	}
	return out
}
