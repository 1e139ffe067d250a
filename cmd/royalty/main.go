package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/royalty/internal/batch"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/commitlock"
	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/contract"
	"github.com/smallbiznis/royalty/internal/ledger"
	"github.com/smallbiznis/royalty/internal/liability"
	"github.com/smallbiznis/royalty/internal/logger"
	"github.com/smallbiznis/royalty/internal/migration"
	"github.com/smallbiznis/royalty/internal/observability"
	"github.com/smallbiznis/royalty/internal/ownership"
	"github.com/smallbiznis/royalty/internal/royalty"
	"github.com/smallbiznis/royalty/internal/sales"
	"github.com/smallbiznis/royalty/internal/server"
	"github.com/smallbiznis/royalty/internal/statement"
	"github.com/smallbiznis/royalty/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		commitlock.Module,

		// Functional Domains
		royalty.Module,
		ledger.Module,
		contract.Module,
		sales.Module,
		ownership.Module,
		statement.Module,
		liability.Module,
		batch.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}
