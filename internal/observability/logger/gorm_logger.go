package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/royalty/pkg/log/ctxlogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// Expected marks errors the caller handles as part of normal flow, such
	// as a duplicate statement commit. They are logged at warn, not error.
	Expected func(error) bool
}

// GormLoggerConfigFor returns warn-level logging with a 250ms slow query
// threshold, raised to info in debug mode.
func GormLoggerConfigFor(debug bool) GormLoggerConfig {
	cfg := GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: 250 * time.Millisecond}
	if debug {
		cfg.Level = gormlogger.Info
	}
	return cfg
}

// GormLogger routes GORM output through the context logger so queries carry
// the request and correlation ids of the statement run that issued them.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, threshold gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.cfg.Level < threshold {
		return
	}
	if ce := ctxlogger.FromContext(ctx).Check(level, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write(zap.String("component", "db"))
	}
}

// Trace logs one line per statement: errors always, slow queries at warn,
// everything else only at info level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var level zapcore.Level
	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		// lookups of contracts and statements miss routinely
		return
	case err != nil && l.cfg.Expected != nil && l.cfg.Expected(err):
		if l.cfg.Level < gormlogger.Warn {
			return
		}
		level = zapcore.WarnLevel
	case err != nil:
		if l.cfg.Level < gormlogger.Error {
			return
		}
		level = zapcore.ErrorLevel
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		if l.cfg.Level < gormlogger.Warn {
			return
		}
		level = zapcore.WarnLevel
	case l.cfg.Level >= gormlogger.Info:
		level = zapcore.DebugLevel
	default:
		return
	}

	ce := ctxlogger.FromContext(ctx).Check(level, "db.query")
	if ce == nil {
		return
	}
	sql, rows := fc()
	stmt := parseStatement(sql)
	fields := []zap.Field{
		zap.String("component", "db"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", stmt.operation),
		zap.Duration("duration", elapsed),
	}
	if stmt.table != "" {
		fields = append(fields, zap.String("table", stmt.table))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// ParamsFilter drops bound values; amounts and author ids stay out of logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

type statementInfo struct {
	operation string
	table     string
}

// parseStatement reports the first verb and its target table. A CTE reports
// the verb of its first body.
func parseStatement(sql string) statementInfo {
	tokens := strings.Fields(strings.ToUpper(sql))
	raw := strings.Fields(sql)
	info := statementInfo{operation: "UNKNOWN"}
	for i, tok := range tokens {
		tok = strings.Trim(tok, "();")
		var tableAfter string
		switch tok {
		case "SELECT", "DELETE":
			tableAfter = "FROM"
		case "INSERT":
			tableAfter = "INTO"
		case "UPDATE":
			if i+1 < len(raw) {
				info.table = cleanIdent(raw[i+1])
			}
		default:
			continue
		}
		info.operation = tok
		if tableAfter != "" {
			for j := i + 1; j+1 < len(tokens); j++ {
				if tokens[j] == tableAfter {
					info.table = cleanIdent(raw[j+1])
					break
				}
			}
		}
		return info
	}
	return info
}

func cleanIdent(s string) string {
	return strings.Trim(s, "`\"();")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
