package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Level: slog.LevelDebug}).WithComponent(ComponentLedger)
	l.Info("state persisted", FieldVersion, 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"ledger"`) || !strings.Contains(out, `"version":3`) {
		t.Fatalf("unexpected output %s", out)
	}
	if l.Component() != ComponentLedger {
		t.Fatalf("component %q", l.Component())
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "text", Output: &buf, Level: slog.LevelWarn})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestTintHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "tint", Output: &buf, Level: slog.LevelInfo})
	l.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("tint handler wrote %q", buf.String())
	}
}

func TestContextMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("request id not propagated: %s", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("missing logger should fall back to default")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)
	sl.LogHTTPEnd(context.Background(), r, 500, 12, "10.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentStorage, OpUpdate, nil)

	out := buf.String()
	for _, want := range []string{`"level":"ERROR"`, `"status_code":500`, `"error":"bad"`, `"operation":"update"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}
