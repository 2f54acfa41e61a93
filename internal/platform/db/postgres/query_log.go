package postgres

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewQueryTracer は pgx のクエリトレースを zap に出力する QueryTracer を返します。
// ロガーで Debug が有効な場合は全クエリ、それ以外は失敗したクエリだけを出力します。
func NewQueryTracer(log *zap.Logger) *tracelog.TraceLog {
	level := tracelog.LogLevelError
	if log.Core().Enabled(zapcore.DebugLevel) {
		level = tracelog.LogLevelDebug
	}
	return &tracelog.TraceLog{Logger: zapTraceLogger{log: log}, LogLevel: level}
}

type zapTraceLogger struct {
	log *zap.Logger
}

func (l zapTraceLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, data[k]))
	}

	switch level {
	case tracelog.LogLevelError:
		l.log.Error(msg, fields...)
	case tracelog.LogLevelWarn:
		l.log.Warn(msg, fields...)
	case tracelog.LogLevelInfo:
		l.log.Info(msg, fields...)
	default:
		l.log.Debug(msg, fields...)
	}
}
