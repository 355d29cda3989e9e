package components

import (
	"context"
	"log/slog"

	"homecare-booking/internal/infra/broker"
	"homecare-booking/internal/outbox"
	"homecare-booking/internal/pkg/config"
	"homecare-booking/internal/usecase/commands"

	"go.uber.org/fx"
)

var DispatcherModule = fx.Module("dispatcher",
	fx.Provide(
		NewDispatcher,
		fx.Annotate(
			func(d *outbox.Dispatcher) *outbox.Dispatcher { return d },
			fx.As(new(commands.OutboxNotifier)),
		),
	),
	fx.Invoke(startDispatcher),
)

func NewDispatcher(store outbox.Store, publisher *broker.Publisher, cfg config.Config, logger *slog.Logger) *outbox.Dispatcher {
	return outbox.NewDispatcher(store, publisher, cfg.Outbox, logger)
}

func startDispatcher(lc fx.Lifecycle, dispatcher *outbox.Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			dispatcher.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			dispatcher.Stop()
			return nil
		},
	})
}
