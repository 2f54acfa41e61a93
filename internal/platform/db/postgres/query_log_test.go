package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ogurasousui/codex-company-registration/internal/platform/config"
)

func TestNewQueryTracer_LevelFollowsLogger(t *testing.T) {
	t.Parallel()

	debugCore, _ := observer.New(zapcore.DebugLevel)
	if got := NewQueryTracer(zap.New(debugCore)).LogLevel; got != tracelog.LogLevelDebug {
		t.Fatalf("expected debug tracing, got %v", got)
	}

	infoCore, _ := observer.New(zapcore.InfoLevel)
	if got := NewQueryTracer(zap.New(infoCore)).LogLevel; got != tracelog.LogLevelError {
		t.Fatalf("expected error-only tracing, got %v", got)
	}
}

func TestZapTraceLogger_MapsLevelsAndFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := zapTraceLogger{log: zap.New(core)}

	l.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"sql": "SELECT 1", "err": "boom"})
	l.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "SELECT 2"})
	l.Log(context.Background(), tracelog.LogLevelTrace, "Prepare", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[1].Level != zapcore.InfoLevel || entries[2].Level != zapcore.DebugLevel {
		t.Fatalf("unexpected levels: %v %v %v", entries[0].Level, entries[1].Level, entries[2].Level)
	}
	if entries[0].ContextMap()["sql"] != "SELECT 1" || entries[0].ContextMap()["err"] != "boom" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}

func TestPoolFields_OmitsPassword(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(config.DatabaseConfig{
		Host:            "db.internal",
		Port:            15432,
		User:            "registry",
		Password:        "s3cret",
		Name:            "registry",
		SSLMode:         "disable",
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("database pool ready", poolFields(poolCfg)...)

	fields := logs.All()[0].ContextMap()
	if fields["host"] != "db.internal" || fields["database"] != "registry" || fields["max_conns"] != int32(8) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for key, value := range fields {
		if s, ok := value.(string); ok && s == "s3cret" {
			t.Fatalf("password leaked through field %s", key)
		}
	}
}
