package readstore

import (
	"context"
	"encoding/json"
	"time"

	"homecare-booking/internal/infra"
	"homecare-booking/internal/usecase/queries"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingViewColumns = `
	id, client_id, caregiver_id, kind, scheduled_at, location, details, status,
	base_cents, platform_fee_cents, tax_cents, payable_cents,
	cancelled_by, cancel_reason, cancelled_at, refund_cents, fee_cents,
	rating_score, rating_review, rating_aspects, rated_at,
	status_history, created_at, updated_at`

type BookingReadStore struct {
	pool *pgxpool.Pool
}

func NewBookingReadStore(pool *pgxpool.Pool) *BookingReadStore {
	return &BookingReadStore{pool: pool}
}

func (s *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+bookingViewColumns+` FROM bookings WHERE id = $1`, id)
	return scanBookingView(row)
}

func (s *BookingReadStore) FindByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*queries.BookingView, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+bookingViewColumns+` FROM bookings WHERE id = $1 AND client_id = $2`, id, clientID)
	return scanBookingView(row)
}

func (s *BookingReadStore) FindUpcomingByClient(ctx context.Context, clientID uuid.UUID, after time.Time) ([]*queries.BookingListItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, scheduled_at, location, status, payable_cents, created_at
		FROM bookings
		WHERE client_id = $1
		  AND scheduled_at >= $2
		  AND status NOT IN ('cancelled', 'completed', 'no_show')
		ORDER BY scheduled_at ASC`,
		clientID, after,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query upcoming bookings", err)
	}
	defer rows.Close()

	items := make([]*queries.BookingListItem, 0)
	for rows.Next() {
		var item queries.BookingListItem
		if err := rows.Scan(
			&item.ID, &item.Kind, &item.ScheduledAt, &item.Location,
			&item.Status, &item.PayableCents, &item.CreatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking list item", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read booking list", err)
	}
	return items, nil
}

func scanBookingView(row pgx.Row) (*queries.BookingView, error) {
	var (
		v             queries.BookingView
		details       []byte
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
	)

	err := row.Scan(
		&v.ID, &v.ClientID, &v.CaregiverID, &v.Kind, &v.ScheduledAt, &v.Location, &details, &v.Status,
		&v.BaseCents, &v.PlatformFeeCents, &v.TaxCents, &v.PayableCents,
		&cancelledBy, &cancelReason, &cancelledAt, &refundCents, &cancelFee,
		&ratingScore, &ratingReview, &ratingAspects, &ratedAt,
		&historyRaw, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan booking view", err)
	}

	v.Details = json.RawMessage(details)

	if cancelledBy != nil && cancelledAt != nil && refundCents != nil && cancelFee != nil {
		cv := &queries.CancellationView{
			By:          *cancelledBy,
			At:          *cancelledAt,
			RefundCents: *refundCents,
			FeeCents:    *cancelFee,
		}
		if cancelReason != nil {
			cv.Reason = *cancelReason
		}
		v.Cancellation = cv
	}

	if ratingScore != nil && ratedAt != nil {
		rv := &queries.RatingView{Score: *ratingScore, At: *ratedAt}
		if ratingReview != nil {
			rv.Review = *ratingReview
		}
		if len(ratingAspects) > 0 {
			if err := json.Unmarshal(ratingAspects, &rv.Aspects); err != nil {
				return nil, infra.WrapRepoErr("failed to decode rating aspects", err)
			}
		}
		v.Rating = rv
	}

	if len(historyRaw) > 0 {
		var stamps []queries.StatusStampView
		if err := json.Unmarshal(historyRaw, &stamps); err != nil {
			return nil, infra.WrapRepoErr("failed to decode status history", err)
		}
		v.History = stamps
	}

	return &v, nil
}
