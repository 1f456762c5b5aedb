package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentSnapshot, Output: &buf})

	l.Info("snapshot written", FieldCount, 3)

	out := buf.String()
	if !strings.Contains(out, "component=snapshot") {
		t.Fatalf("missing component in %q", out)
	}
	if !strings.Contains(out, "count=3") {
		t.Fatalf("missing field in %q", out)
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentApp, Output: &buf}).WithComponent(ComponentFetch)

	l.Warn("skip")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=fetch") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextVariantsRespectLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentGmail, Output: &buf})

	l.InfoContext(context.Background(), "hidden")
	l.WarnContext(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "component=gmail") {
		t.Fatalf("unexpected output %q", out)
	}
}
