package core

import "context"

// ToolNameSource is the slice of the tool registry the parser needs: a way
// to ask "is this name a known tool, and if so which dialect does it use".
type ToolNameSource interface {
	HasTool(name string) bool
	IsMCPTool(name string) bool
}

// Parser extracts at most one ToolCall from assistant text. ok is
// false when no parseable tool call is present (the loop then treats the
// text itself as a completion).
type Parser interface {
	Parse(assistantText string, known ToolNameSource) (call *ToolCall, ok bool, err error)
}

// Dispatcher resolves and runs tool calls, and renders the system-prompt
// tool section. It also satisfies ToolNameSource.
type Dispatcher interface {
	ToolNameSource
	Dispatch(ctx context.Context, session *AgentSession, call ToolCall) (ToolResult, error)
	RenderToolsSection() string
}

// CompactOptions parameterizes one Compact call.
type CompactOptions struct {
	KeepLastSegments  int
	MinSegmentsToKeep int
}

// CompactStats reports what a Compact call did.
type CompactStats struct {
	OriginalCount   int
	CompactedCount  int
	Removed         int
	ReductionPercent float64
	TokensSaved     int
}

// Compactor shrinks History while preserving semantic continuity.
type Compactor interface {
	Compact(h History, opts CompactOptions) (History, CompactStats)
}

// SpillInfo describes where a governed payload's full content was written.
type SpillInfo struct {
	Path    string
	Written bool
	Err     error
}

// Governor bounds the size of a tool result re-entering the conversation.
type Governor interface {
	Govern(sessionID, toolName, payload string, maxOutputTokens int) (message string, spill *SpillInfo)
}

// Finalizer cleans and (optionally) schema-validates the attempt_completion
// payload, running the bounded self-repair loop on failure.
type Finalizer interface {
	Finalize(ctx context.Context, session *AgentSession, raw string, schema map[string]any) (string, error)
}

// StuckDetector classifies assistant text as "stuck".
type StuckDetector interface {
	IsStuck(text string) bool
}
