package bootstrap

import (
	"context"
	"log/slog"

	"homecare-booking/internal/infra/broker"
	"homecare-booking/internal/pkg/config"

	"go.uber.org/fx"
)

var BrokerModule = fx.Module("broker",
	fx.Provide(
		NewPublisher,
	),
)

func NewPublisher(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) *broker.Publisher {
	publisher := broker.NewPublisher(cfg.Broker, cfg.Backoff, logger)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})

	return publisher
}
