package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	handler := &consoleHandler{writer: &buf, level: lvl}
	logger := slog.New(handler).With(String(FieldComponent, "matcher"))

	logger.Info("match accepted",
		String("title", "Attack on Titan"),
		Int("score", 92),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level: %q", line)
	}
	if !strings.Contains(line, "matcher: match accepted") {
		t.Fatalf("missing component prefix: %q", line)
	}
	if !strings.Contains(line, `title="Attack on Titan"`) {
		t.Fatalf("expected quoted multi-word value: %q", line)
	}
	if !strings.Contains(line, "score=92") {
		t.Fatalf("missing attr: %q", line)
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(&consoleHandler{writer: &buf, level: lvl})

	logger.Info("progress", slog.Group("run", Int("current", 3), Int("total", 9)))

	line := buf.String()
	if !strings.Contains(line, "run.current=3") || !strings.Contains(line, "run.total=9") {
		t.Fatalf("expected dotted group keys: %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFormatValueDuration(t *testing.T) {
	if got := formatValue(slog.DurationValue(1500 * time.Millisecond)); got != "1.5s" {
		t.Fatalf("unexpected duration formatting: %q", got)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must report disabled")
	}
}
