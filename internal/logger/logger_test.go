package logger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"noise": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestToAttributesSkipsUnsupported(t *testing.T) {
	attrs := toAttributes([]any{"product", "Phone", "posts", 3, "ratio", 0.5, "ok", true, "skip", struct{}{}, 42, "bad key", "dangling"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "product" || attrs[0].Value.AsString() != "Phone" {
		t.Errorf("unexpected first attribute %v", attrs[0])
	}
}

func TestLoggingBeforeAndAfterInit(t *testing.T) {
	ctx := context.Background()
	Info(ctx, "before init is a no-op")

	if err := InitWithConfig(LogConfig{Level: "DEBUG", Format: "console", DetailedLogging: true}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	defer func() { _ = InitWithConfig(LogConfig{Level: "ERROR", Format: "json"}) }()

	if !IsDebugEnabled() {
		t.Error("detailed logging should enable debug")
	}
	op := StartOperation(ctx, "test.op", "product", "Phone")
	if op.Context() == nil {
		t.Fatal("operation context missing")
	}
	op.EndWithError(errors.New("boom"))
	Prediction(ctx, "Phone", "Acme", "High", 0.8, 4.2)
}
