package royalty

import (
	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/royalty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("royalty.service",
	fx.Provide(
		fx.Annotate(
			func(h *config.EngineConfigHolder) *config.EngineConfigHolder { return h },
			fx.As(new(service.PolicySource)),
		),
	),
	fx.Provide(service.NewService),
)
