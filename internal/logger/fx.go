package logger

import (
	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module builds the process logger from the application config, installs it
// as the zap global and flushes it on shutdown.
var Module = fx.Module("logger",
	fx.Provide(fromConfig),
	fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger) {
		lc.Append(fx.StopHook(func() {
			// stdout sync fails on some terminals; nothing to do about it
			_ = log.Sync()
		}))
	}),
)

func fromConfig(appCfg config.Config) (*zap.Logger, error) {
	ctxlogger.SetServiceName(appCfg.AppName)
	return New(Options{
		Level:       appCfg.LogLevel,
		ServiceName: appCfg.AppName,
		Environment: appCfg.Environment,
		Version:     appCfg.AppVersion,
		FilePath:    appCfg.LogFile,
	})
}
