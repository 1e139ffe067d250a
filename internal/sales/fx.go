package sales

import (
	"github.com/smallbiznis/royalty/internal/sales/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sales.service",
	fx.Provide(service.New),
)
