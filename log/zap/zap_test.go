package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/mongokv"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("connect failed", mongokv.Fields{"target": "mongodb://h", "err": errors.New("refused")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want 1", len(entries))
	}
	e := entries[0]
	if e.Message != "connect failed" || e.Level != zapcore.WarnLevel || e.LoggerName != "mongokv" {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["target"] != "mongodb://h" || ctx["err"] != "refused" {
		t.Fatalf("fields=%v", ctx)
	}
}
