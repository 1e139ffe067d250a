package statement

import (
	"github.com/smallbiznis/royalty/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(service.New),
)
