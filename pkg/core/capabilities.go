package core

import "context"

// GenerateOptions parameterize one LLMClient.Generate call.
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// ProviderTools, if non-nil, are provider-native tool declarations
	// (e.g. Google "builtin" search) the core treats as opaque: any
	// resulting events are re-presented to the model as additional prose
	// and never dispatched through the tool registry.
	ProviderTools []map[string]any
}

// FinishReason mirrors the provider's own terminology for why generation
// stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolUse       FinishReason = "tool_use"
	FinishContentFilter FinishReason = "content_filter"
)

// ProviderToolEvent is an opaque provider-native tool invocation/result the
// core never interprets.
type ProviderToolEvent struct {
	Name    string
	Payload map[string]any
}

// GenerateResult is what an LLMClient returns for one turn.
type GenerateResult struct {
	Text               string
	Usage              Usage
	FinishReason       FinishReason
	ProviderToolEvents []ProviderToolEvent
}

// Usage reports token accounting for one Generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient is the external collaborator the loop consumes to talk to a
// large language model. The transport itself (HTTP to Anthropic / OpenAI /
// Google / Bedrock) is out of scope for the core; only this interface is.
type LLMClient interface {
	Generate(ctx context.Context, history History, opts GenerateOptions) (GenerateResult, error)
}

// SubprocessResult is the uniform shape CodeSearch operations return.
type SubprocessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// SearchParams, QueryParams and ExtractParams parameterize the three
// CodeSearch operations.
type SearchParams struct {
	Query      string
	Path       string
	Exact      bool
	AllowTests bool
}

type QueryParams struct {
	Pattern    string
	Path       string
	Language   string
	AllowTests bool
}

type ExtractParams struct {
	FilePath     string
	Line         int
	EndLine      int
	ContextLines int
	Format       string
}

// CodeSearch is the external collaborator providing the code-search
// subprocess operations. The core only needs this interface; the reference
// implementation invokes an external `probe` binary (see search/subprocess).
type CodeSearch interface {
	Search(ctx context.Context, p SearchParams) (SubprocessResult, error)
	Query(ctx context.Context, p QueryParams) (SubprocessResult, error)
	Extract(ctx context.Context, p ExtractParams) (SubprocessResult, error)
}

// Implementer is the external collaborator that actually edits source
// files. The core never writes to the repository itself; `implement` is a
// tool that delegates to this capability.
type Implementer interface {
	Implement(ctx context.Context, task string, autoCommits bool) (string, error)
}
