package repository

import (
	"context"
	"encoding/json"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/infra"
	"homecare-booking/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository persists one row per committed transition in the same
// transaction as the state change, and drains pending rows for the
// dispatcher. This is what turns direct-publish into true at-least-once.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Enqueue must run on the same tx as the booking write.
func (r *OutboxRepository) Enqueue(ctx context.Context, dbtx db.DBTX, evt booking.Event) error {
	var payload []byte
	if len(evt.Payload) > 0 {
		var err error
		payload, err = json.Marshal(evt.Payload)
		if err != nil {
			return infra.WrapRepoErr("failed to encode event payload", err)
		}
	}

	_, err := r.pickDB(dbtx).Exec(ctx, `
		INSERT INTO booking_outbox (booking_id, client_id, event_name, status, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		evt.BookingID, evt.ClientID, evt.Name, evt.Status.String(), payload, evt.OccurredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to enqueue outbox event", err)
	}
	return nil
}

// DrainPending claims up to batch undelivered rows with SKIP LOCKED so
// concurrent dispatchers never double-claim, delivers them in id order, and
// marks each delivered row inside the same transaction. A delivery failure
// commits the progress made so far and bumps the failed row's attempt count;
// the row stays pending for the next tick.
func (r *OutboxRepository) DrainPending(ctx context.Context, batch int32, deliver func(ctx context.Context, evt booking.Event) error) (int, error) {
	return db.RunInTx(ctx, r.pool, func(tx db.DBTX) (int, error) {
		rows, err := tx.Query(ctx, `
			SELECT id, booking_id, client_id, event_name, status, payload, occurred_at
			FROM booking_outbox
			WHERE delivered_at IS NULL
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, batch)
		if err != nil {
			return 0, infra.WrapRepoErr("failed to claim outbox rows", err)
		}

		type pendingRow struct {
			id  int64
			evt booking.Event
		}
		var pending []pendingRow
		for rows.Next() {
			var (
				id         int64
				bookingID  uuid.UUID
				clientID   uuid.UUID
				name       string
				status     string
				payloadRaw []byte
				occurredAt time.Time
			)
			if scanErr := rows.Scan(&id, &bookingID, &clientID, &name, &status, &payloadRaw, &occurredAt); scanErr != nil {
				rows.Close()
				return 0, infra.WrapRepoErr("failed to scan outbox row", scanErr)
			}
			var payload map[string]any
			if len(payloadRaw) > 0 {
				if decodeErr := json.Unmarshal(payloadRaw, &payload); decodeErr != nil {
					rows.Close()
					return 0, infra.WrapRepoErr("failed to decode outbox payload", decodeErr)
				}
			}
			pending = append(pending, pendingRow{
				id: id,
				evt: booking.Event{
					Name:       name,
					BookingID:  bookingID,
					ClientID:   clientID,
					Status:     booking.Status(status),
					OccurredAt: occurredAt,
					Payload:    payload,
				},
			})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, infra.WrapRepoErr("failed to read outbox rows", err)
		}

		delivered := 0
		for _, p := range pending {
			if deliverErr := deliver(ctx, p.evt); deliverErr != nil {
				if _, markErr := tx.Exec(ctx,
					`UPDATE booking_outbox SET attempts = attempts + 1 WHERE id = $1`, p.id); markErr != nil {
					return delivered, infra.WrapRepoErr("failed to record outbox attempt", markErr)
				}
				// Stop the batch; the remaining rows stay pending.
				return delivered, nil
			}
			if _, markErr := tx.Exec(ctx,
				`UPDATE booking_outbox SET delivered_at = now(), attempts = attempts + 1 WHERE id = $1`, p.id); markErr != nil {
				return delivered, infra.WrapRepoErr("failed to mark outbox row delivered", markErr)
			}
			delivered++
		}
		return delivered, nil
	})
}

// PendingCount supports health reporting and tests.
func (r *OutboxRepository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM booking_outbox WHERE delivered_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count pending outbox rows", err)
	}
	return count, nil
}

func (r *OutboxRepository) pickDB(dbtx db.DBTX) db.DBTX {
	if dbtx != nil {
		return dbtx
	}
	return r.pool
}
