package components

import (
	"homecare-booking/internal/infra/readstore"
	repo_impl "homecare-booking/internal/infra/repository"
	"homecare-booking/internal/outbox"
	"homecare-booking/internal/usecase/commands"
	"homecare-booking/internal/usecase/queries"

	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repo_impl.NewBookingRepository,
			fx.As(new(commands.BookingRepository)),
		),
		fx.Annotate(
			repo_impl.NewCatalogRepository,
			fx.As(new(commands.CatalogRepository)),
		),
		fx.Annotate(
			repo_impl.NewOutboxRepository,
			fx.As(new(commands.OutboxEnqueuer)),
			fx.As(new(outbox.Store)),
		),
		// Read-side repository for queries
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
	),
)
