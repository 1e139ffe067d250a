package ledger

import (
	"github.com/smallbiznis/royalty/internal/ledger/service"
	"go.uber.org/fx"
)

// Module provides the append-only advance ledger used by contract advance
// payments and statement commits.
var Module = fx.Module("advance.ledger",
	fx.Provide(service.NewService),
)
