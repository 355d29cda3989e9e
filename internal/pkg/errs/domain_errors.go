package errs

import "errors"

// Sentinel errors shared by the command/query layers. Handlers map these to
// the five client-visible outcomes; internal connection states never leak.
var (
	// Input rejected before any I/O
	ErrValidation = errors.New("validation failed")

	// Booking/catalog absent, or not owned by the caller
	ErrBookingNotFound      = errors.New("booking not found")
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")

	// Lifecycle errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateReview        = errors.New("duplicate review")

	// Concurrent-mutation conflict; safe to retry with a fresh read
	ErrStaleState = errors.New("stale booking state")

	// Dependency outages, surfaced distinctly so callers can retry
	ErrBrokerUnavailable = errors.New("message broker unavailable")
	ErrStoreUnavailable  = errors.New("document store unavailable")

	// Persistence succeeded but the announcement did not; degraded success
	ErrPublishDegraded = errors.New("event publication degraded")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
