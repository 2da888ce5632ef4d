package core

import (
	"context"
	"path"
	"strings"
)

// ToolSourceKind tags where a tool came from.
type ToolSourceKind string

const (
	ToolSourceNative       ToolSourceKind = "native"
	ToolSourceMCP          ToolSourceKind = "mcp"
	ToolSourceGeminiBuiltin ToolSourceKind = "gemini-builtin"
)

// ToolOriginKind tags which dialect a ToolCall was parsed with.
type ToolOriginKind string

const (
	OriginNativeXML  ToolOriginKind = "native-xml"
	OriginMCPJSON    ToolOriginKind = "mcp-json-in-params"
)

// ToolParameter describes one parameter of a tool, rich enough to render
// both an XML usage example and (for MCP tools) a JSON-Schema fragment.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// ToolDescriptor is the tagged-sum record backing dynamic tool dispatch:
// a name, a source kind, a rendering, a JSON schema (for MCP tools) and an
// execute capability. There is no class hierarchy — polymorphism over
// {native, mcp, gemini-builtin} is this one struct's Source field.
type ToolDescriptor struct {
	Name        string
	Source      ToolSourceKind
	Description string
	Parameters  []ToolParameter
	// Schema is the raw JSON-Schema for MCP tools (nil for native tools,
	// whose parameters are described structurally via Parameters).
	Schema map[string]any

	Suspends      bool
	MutatesRepo   bool
	ProducesImages bool

	Execute func(ctx context.Context, args map[string]any) (ToolResult, error)
}

// IsMCP reports whether the descriptor names an MCP-sourced tool, i.e. one
// whose name carries the mcp__<server>__<tool> prefix.
func (d ToolDescriptor) IsMCP() bool { return d.Source == ToolSourceMCP }

// MCPToolName builds the mcp__<server>__<tool> qualified name.
func MCPToolName(server, tool string) string {
	return "mcp__" + server + "__" + tool
}

// SplitMCPToolName splits a qualified mcp__<server>__<tool> name back into
// its parts. ok is false if name does not carry the prefix.
func SplitMCPToolName(name string) (server, tool string, ok bool) {
	const prefix = "mcp__"
	if !strings.HasPrefix(name, prefix) {
		return "", "", false
	}
	rest := name[len(prefix):]
	idx := strings.Index(rest, "__")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+2:], true
}

// ToolCall is one parsed invocation of a registered tool.
type ToolCall struct {
	Name       string
	Parameters map[string]any
	// RawThinking is the <thinking>...</thinking> content stripped before
	// the call was located, exposed for debugging only.
	RawThinking string
	Origin      ToolOriginKind
}

// FailureKind enumerates the ways a tool execution can fail without being
// fatal to the session (these are fed back to the model as a
// normal tool result).
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureExecution        FailureKind = "execution_failure"
	FailureNotFound         FailureKind = "not_found"
	FailureInvalidArgs      FailureKind = "invalid_args"
)

// DiscoveredImage is a file the dispatcher found referenced in a tool's
// stdout and subsequently loaded as an opaque byte blob.
type DiscoveredImage struct {
	Path    string
	DataURL string
	MIME    string
}

// ToolResult is the outcome of dispatching one ToolCall.
type ToolResult struct {
	Success bool
	// Payload is the UTF-8 text fed back into the conversation.
	Payload string

	DiscoveredImages []DiscoveredImage

	FailureKind FailureKind
	Message     string
}

// AllowedToolSetMode selects how AllowedToolSet.IsEnabled evaluates.
type AllowedToolSetMode string

const (
	ModeAll       AllowedToolSetMode = "all"
	ModeWhitelist AllowedToolSetMode = "whitelist"
	ModeNone      AllowedToolSetMode = "none"
)

// AllowedToolSet gates which tools a session may dispatch.
type AllowedToolSet struct {
	Mode    AllowedToolSetMode
	Include []string // glob patterns, e.g. "mcp__fs__*"
	Exclude []string // glob patterns without the leading "!"
}

// NewAllowAll builds the permissive default.
func NewAllowAll() AllowedToolSet { return AllowedToolSet{Mode: ModeAll} }

// IsEnabled implements the allow/deny predicate.
func (s AllowedToolSet) IsEnabled(name string) bool {
	if s.Mode == ModeNone {
		return false
	}
	for _, pat := range s.Exclude {
		if globMatch(pat, name) {
			return false
		}
	}
	if s.Mode == ModeAll {
		if len(s.Include) == 0 {
			return true
		}
		return anyGlobMatch(s.Include, name)
	}
	// whitelist
	return anyGlobMatch(s.Include, name)
}

func anyGlobMatch(patterns []string, name string) bool {
	for _, pat := range patterns {
		if globMatch(pat, name) {
			return true
		}
	}
	return false
}

// globMatch matches name against pat where "*" matches any run of
// characters, including "__" separators inside mcp__server__* forms.
// path.Match does not treat "/" specially for our inputs (tool names never
// contain "/"), so it is reused directly.
func globMatch(pat, name string) bool {
	ok, err := path.Match(pat, name)
	return err == nil && ok
}

// BashCommand is the parsed form of a shell command string, used by the
// permission checker.
type BashCommand struct {
	Raw       string
	Head      string
	Args      []string
	IsComplex bool
	// Components holds the simple sub-commands a complex command splits
	// into across |, &&, ||, ; — empty when !IsComplex or when splitting
	// failed (substitution/redirection present).
	Components []BashCommand
	// SplitFailed is true when IsComplex but the command could not be
	// safely split (contains $(...), backticks, or redirection).
	SplitFailed bool
}
