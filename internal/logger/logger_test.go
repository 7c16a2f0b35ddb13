package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core)).With(String("request_id", "r-1"))

	l.Debug("hidden")
	l.Warn("stage warning", Int("count", 2), Error(errors.New("boom")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" {
		t.Fatalf("missing request_id field: %v", fields)
	}
	if fields["count"] != int64(2) {
		t.Fatalf("count field = %v", fields["count"])
	}
	if fields["error"] != "boom" {
		t.Fatalf("error field = %v", fields["error"])
	}
}

func TestNopIsSafe(t *testing.T) {
	l := NewNop().With(String("k", "v"))
	l.Info("ignored")
	if err := l.Sync(); err != nil {
		t.Fatalf("nop sync: %v", err)
	}
}
