package repository

import (
	"context"
	"encoding/json"
	"errors"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/domain/catalog"
	"homecare-booking/internal/infra"
	"homecare-booking/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CatalogRepository struct{}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{}
}

// FindActiveByKind loads the current catalog value for a service kind.
// Entries are owned by the catalog collaborator; this core only reads them.
func (r *CatalogRepository) FindActiveByKind(ctx context.Context, dbtx db.DBTX, kind booking.ServiceKind) (*catalog.Entry, error) {
	var (
		id             uuid.UUID
		basePriceCents int64
		currency       string
		windowsRaw     []byte
	)
	err := dbtx.QueryRow(ctx, `
		SELECT id, base_price_cents, currency, surge_windows
		FROM catalog_entries
		WHERE kind = $1 AND active`, kind.String(),
	).Scan(&id, &basePriceCents, &currency, &windowsRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("catalog entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find catalog entry", err)
	}

	var windows []catalog.SurgeWindow
	if len(windowsRaw) > 0 {
		if err := json.Unmarshal(windowsRaw, &windows); err != nil {
			return nil, infra.WrapRepoErr("failed to decode surge windows", err)
		}
	}

	entry, err := catalog.NewEntry(id, kind, basePriceCents, currency, windows, true)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid catalog entry", err)
	}
	return entry, nil
}
