package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "refresh finished",
		String("run_id", "abc"),
		Int("entries", 3),
		Duration("took", 1500*time.Millisecond),
	)

	out := buf.String()
	for _, want := range []string{"refresh finished", "run_id=abc", "entries=3", "took=1.5s", "source=logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf, "json"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("scheduler").Warn(context.Background(), "run failed", Error(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["logger"] != "scheduler" {
		t.Errorf("logger = %v, want scheduler", rec["logger"])
	}
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().Debug(context.Background(), "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug record missing after level change: %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerUnknownFormat(t *testing.T) {
	if err := InitWithWriter(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if err := InitWithWriter(nil, "text"); err == nil {
		t.Fatal("expected error for nil writer")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info(context.Background(), "nothing")
	l.Named("x").Error(nil, "still nothing") //nolint:staticcheck // nil ctx is tolerated
}
