package bootstrap

import (
	"homecare-booking/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	JWTModule,
	BrokerModule,
	components.RepositoryModule,
	components.UseCaseModule,
	components.DispatcherModule,
	components.HandlerModule,
)
