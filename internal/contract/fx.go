package contract

import (
	"github.com/smallbiznis/royalty/internal/contract/repository"
	"github.com/smallbiznis/royalty/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
