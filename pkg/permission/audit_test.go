package permission

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogRecorderLogsDeniedAtWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewSlogRecorder(logger)

	r.Record(Decision{Command: "git push", ParsedHead: "git", Allowed: false, Reason: "matches default deny pattern", MatchedPattern: "git:push"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected a WARN record, got %q", out)
	}
	if !strings.Contains(out, "command=\"git push\"") {
		t.Errorf("expected the command in the record, got %q", out)
	}
}

func TestSlogRecorderLogsAllowedAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewSlogRecorder(logger)

	r.Record(Decision{Command: "ls -la", ParsedHead: "ls", Allowed: true, Reason: "matches default allow pattern", MatchedPattern: "ls"})

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("expected a DEBUG record, got %q", out)
	}
}

func TestSlogRecorderNilLoggerFallsBackToDefault(t *testing.T) {
	r := NewSlogRecorder(nil)
	r.Record(Decision{Command: "ls", Allowed: true})
}
