package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithSessionAddsSessionIDAttr(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	scoped := WithSession(base, "sess-123")
	scoped.Info("tool dispatched")

	out := buf.String()
	if !strings.Contains(out, "session.id=sess-123") {
		t.Errorf("expected session.id attr in output, got %q", out)
	}
}

func TestWithSessionEmptyIDReturnsSameLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := WithSession(base, ""); got != base {
		t.Errorf("expected WithSession to return the same logger unchanged for an empty id")
	}
}

func TestWithSessionNilLoggerFallsBackToDefault(t *testing.T) {
	scoped := WithSession(nil, "sess-456")
	if scoped == nil {
		t.Fatal("expected a non-nil logger")
	}
}
