package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/infra"
	"homecare-booking/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `
	id, client_id, caregiver_id, kind, scheduled_at, location, details, status,
	base_cents, platform_fee_cents, tax_cents, payable_cents,
	cancelled_by, cancel_reason, cancelled_at, refund_cents, fee_cents,
	rating_score, rating_review, rating_aspects, rated_at,
	status_history, created_at, updated_at`

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

func (r *BookingRepository) Create(ctx context.Context, dbtx db.DBTX, b *booking.Booking) error {
	history, err := marshalHistory(b.History())
	if err != nil {
		return infra.WrapRepoErr("failed to encode status history", err)
	}

	_, err = dbtx.Exec(ctx, `
		INSERT INTO bookings (
			id, client_id, caregiver_id, kind, scheduled_at, location, details, status,
			base_cents, platform_fee_cents, tax_cents, payable_cents,
			status_history, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.ID(), b.ClientID(), b.CaregiverID(), b.Kind().String(), b.ScheduledAt(),
		b.Location().String(), []byte(b.Details()), b.Status().String(),
		b.Price().Base.Cents(), b.Price().PlatformFee.Cents(),
		b.Price().Tax.Cents(), b.Price().Payable.Cents(),
		history, b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

// UpdateTransition is the single atomic conditional write for every lifecycle
// move: it only lands when the stored status still equals the status the
// transition was computed against. Zero rows affected means a concurrent
// writer won and the caller must re-read.
func (r *BookingRepository) UpdateTransition(ctx context.Context, dbtx db.DBTX, b *booking.Booking, expected booking.Status) error {
	history, err := marshalHistory(b.History())
	if err != nil {
		return infra.WrapRepoErr("failed to encode status history", err)
	}

	var (
		cancelledBy  *string
		cancelReason *string
		cancelledAt  *time.Time
		refundCents  *int64
		feeCents     *int64
	)
	if c := b.Cancellation(); c != nil {
		by := string(c.By)
		reason := c.Reason
		at := c.At
		refund := c.Refund.Cents()
		fee := c.Fee.Cents()
		cancelledBy, cancelReason, cancelledAt = &by, &reason, &at
		refundCents, feeCents = &refund, &fee
	}

	var (
		ratingScore   *int
		ratingReview  *string
		ratingAspects []byte
		ratedAt       *time.Time
	)
	if rt := b.Rating(); rt != nil {
		score := rt.Score()
		review := rt.Review()
		at := rt.At()
		ratingScore, ratingReview, ratedAt = &score, &review, &at
		if aspects := rt.Aspects(); len(aspects) > 0 {
			ratingAspects, err = json.Marshal(aspects)
			if err != nil {
				return infra.WrapRepoErr("failed to encode rating aspects", err)
			}
		}
	}

	tag, err := dbtx.Exec(ctx, `
		UPDATE bookings SET
			status = $3,
			caregiver_id = $4,
			cancelled_by = $5, cancel_reason = $6, cancelled_at = $7,
			refund_cents = $8, fee_cents = $9,
			rating_score = $10, rating_review = $11, rating_aspects = $12, rated_at = $13,
			status_history = $14,
			updated_at = $15
		WHERE id = $1 AND status = $2`,
		b.ID(), expected.String(), b.Status().String(), b.CaregiverID(),
		cancelledBy, cancelReason, cancelledAt, refundCents, feeCents,
		ratingScore, ratingReview, ratingAspects, ratedAt,
		history, b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking modified concurrently", nil, infra.KindStaleState)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	row := dbtx.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// FindByIDForClient scopes the read to the owning client; foreign bookings
// answer not-found so existence never leaks.
func (r *BookingRepository) FindByIDForClient(ctx context.Context, dbtx db.DBTX, id, clientID uuid.UUID) (*booking.Booking, error) {
	row := dbtx.QueryRow(ctx,
		`SELECT`+bookingColumns+` FROM bookings WHERE id = $1 AND client_id = $2`, id, clientID)
	return scanBooking(row)
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, clientID  uuid.UUID
		caregiverID   *uuid.UUID
		kind          string
		scheduledAt   time.Time
		location      string
		details       []byte
		status        string
		baseCents     int64
		feeCents      int64
		taxCents      int64
		payableCents  int64
		cancelledBy   *string
		cancelReason  *string
		cancelledAt   *time.Time
		refundCents   *int64
		cancelFee     *int64
		ratingScore   *int
		ratingReview  *string
		ratingAspects []byte
		ratedAt       *time.Time
		historyRaw    []byte
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&id, &clientID, &caregiverID, &kind, &scheduledAt, &location, &details, &status,
		&baseCents, &feeCents, &taxCents, &payableCents,
		&cancelledBy, &cancelReason, &cancelledAt, &refundCents, &cancelFee,
		&ratingScore, &ratingReview, &ratingAspects, &ratedAt,
		&historyRaw, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan booking", err)
	}

	price := booking.PriceSnapshot{
		Base:        booking.NewMoney(baseCents),
		PlatformFee: booking.NewMoney(feeCents),
		Tax:         booking.NewMoney(taxCents),
		Payable:     booking.NewMoney(payableCents),
	}

	var cancel *booking.Cancellation
	if cancelledBy != nil && cancelledAt != nil && refundCents != nil && cancelFee != nil {
		reason := ""
		if cancelReason != nil {
			reason = *cancelReason
		}
		cancel = &booking.Cancellation{
			By:     booking.Actor(*cancelledBy),
			Reason: reason,
			At:     *cancelledAt,
			Refund: booking.NewMoney(*refundCents),
			Fee:    booking.NewMoney(*cancelFee),
		}
	}

	var rating *booking.Rating
	if ratingScore != nil && ratedAt != nil {
		review := ""
		if ratingReview != nil {
			review = *ratingReview
		}
		var aspects map[string]int
		if len(ratingAspects) > 0 {
			if err := json.Unmarshal(ratingAspects, &aspects); err != nil {
				return nil, infra.WrapRepoErr("failed to decode rating aspects", err)
			}
		}
		r := booking.ReconstructRating(*ratingScore, review, aspects, *ratedAt)
		rating = &r
	}

	history, err := unmarshalHistory(historyRaw)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to decode status history", err)
	}

	return booking.ReconstructBooking(
		id, clientID, caregiverID,
		booking.ServiceKind(kind), scheduledAt,
		booking.ReconstructLocation(location), details,
		booking.Status(status), price, cancel, rating, history,
		createdAt, updatedAt,
	), nil
}

type statusStampRow struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func marshalHistory(history []booking.StatusStamp) ([]byte, error) {
	rows := make([]statusStampRow, len(history))
	for i, s := range history {
		rows[i] = statusStampRow{Status: s.Status.String(), At: s.At}
	}
	return json.Marshal(rows)
}

func unmarshalHistory(raw []byte) ([]booking.StatusStamp, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []statusStampRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	history := make([]booking.StatusStamp, len(rows))
	for i, r := range rows {
		history[i] = booking.StatusStamp{Status: booking.Status(r.Status), At: r.At}
	}
	return history, nil
}
