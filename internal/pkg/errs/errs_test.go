//go:build unit

package errs_test

import (
	stderrors "errors"
	"testing"

	"homecare-booking/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	t.Run("matches a marker through wrapping", func(t *testing.T) {
		err := errs.Wrap(errs.Mark(errs.New("booking modified concurrently"), errs.ErrStaleState), "cancel failed")
		require.True(t, errs.Is(err, errs.ErrStaleState))
	})

	t.Run("matches a bare sentinel", func(t *testing.T) {
		require.True(t, errs.Is(errs.ErrBookingNotFound, errs.ErrBookingNotFound))
	})

	t.Run("stdlib errors.Is cannot see markers", func(t *testing.T) {
		// Anyone matching categorized errors must go through errs.Is.
		err := errs.Mark(errs.New("connection refused"), errs.ErrStoreUnavailable)
		assert.False(t, stderrors.Is(err, errs.ErrStoreUnavailable))
		assert.True(t, errs.Is(err, errs.ErrStoreUnavailable))
	})

	t.Run("does not match unrelated sentinels", func(t *testing.T) {
		err := errs.Mark(errs.New("no active catalog entry"), errs.ErrCatalogEntryNotFound)
		assert.False(t, errs.Is(err, errs.ErrBookingNotFound))
	})
}

func TestMark(t *testing.T) {
	t.Run("nil error yields the marker itself", func(t *testing.T) {
		require.Equal(t, errs.ErrValidation, errs.Mark(nil, errs.ErrValidation))
	})
}
