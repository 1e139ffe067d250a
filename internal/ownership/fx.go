package ownership

import (
	"github.com/smallbiznis/royalty/internal/ownership/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("ownership.store",
	fx.Provide(repository.New),
)
