package permission

import "log/slog"

// SlogRecorder is the default non-noop Recorder: every Decision becomes one
// structured log record, at warn level for a denial and debug for an
// allow, so an operator can grep their log for every bash invocation an
// agent attempted without re-deriving it from the pattern tables.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder builds a SlogRecorder. A nil logger falls back to
// slog.Default().
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *SlogRecorder) Record(d Decision) {
	attrs := []any{
		"command", d.Command,
		"head", d.ParsedHead,
		"allowed", d.Allowed,
		"reason", d.Reason,
	}
	if d.MatchedPattern != "" {
		attrs = append(attrs, "pattern", d.MatchedPattern)
	}
	if d.OverriddenDeny {
		attrs = append(attrs, "overrode_default_deny", true)
	}
	if d.Allowed {
		r.logger.Debug("permission: command allowed", attrs...)
		return
	}
	r.logger.Warn("permission: command denied", attrs...)
}
