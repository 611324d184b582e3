package payment

import "go.uber.org/fx"

// Module exposes the payment service via Fx.
var Module = fx.Options(
	fx.Provide(NewRecorder),
	fx.Provide(NewService),
)
