package tools

import (
	"context"
	"fmt"

	"github.com/probelabs/probe-agent/pkg/core"
)

// NewSearchTool builds the `search` descriptor: a thin adapter over
// core.CodeSearch.Search.
func NewSearchTool(cs core.CodeSearch, workdir string) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "search",
		Source:      core.ToolSourceNative,
		Description: "Searches the repository for code matching a query.",
		Parameters: []core.ToolParameter{
			{Name: "query", Type: "string", Required: true, Description: "search query, supports elastic-search-like syntax"},
			{Name: "path", Type: "string", Required: false, Description: "directory to search within, default \".\""},
			{Name: "exact", Type: "boolean", Required: false, Description: "require exact token matches rather than stemmed matches"},
			{Name: "allow_tests", Type: "boolean", Required: false, Description: "include test files in results"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "query is required"}, nil
			}
			p := core.SearchParams{
				Query:      query,
				Path:       stringArgOr(args["path"], workdir),
				Exact:      boolArg(args["exact"]),
				AllowTests: boolArg(args["allow_tests"]),
			}
			return subprocessResultToToolResult(cs.Search(ctx, p))
		},
	}
}

// NewQueryTool builds the `query` descriptor: a thin adapter over
// core.CodeSearch.Query (AST-grep style structural queries).
func NewQueryTool(cs core.CodeSearch, workdir string) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "query",
		Source:      core.ToolSourceNative,
		Description: "Runs a structural AST pattern query against the repository.",
		Parameters: []core.ToolParameter{
			{Name: "pattern", Type: "string", Required: true, Description: "AST pattern, e.g. \"function $NAME($$$ARGS) { $$$ }\""},
			{Name: "path", Type: "string", Required: false, Description: "directory to search within, default \".\""},
			{Name: "language", Type: "string", Required: false, Description: "language hint, e.g. \"go\", \"javascript\""},
			{Name: "allow_tests", Type: "boolean", Required: false, Description: "include test files in results"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			pattern, _ := args["pattern"].(string)
			if pattern == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "pattern is required"}, nil
			}
			p := core.QueryParams{
				Pattern:    pattern,
				Path:       stringArgOr(args["path"], workdir),
				Language:   stringArgOr(args["language"], ""),
				AllowTests: boolArg(args["allow_tests"]),
			}
			return subprocessResultToToolResult(cs.Query(ctx, p))
		},
	}
}

// NewExtractTool builds the `extract` descriptor: a thin adapter over
// core.CodeSearch.Extract (pulls a file or line range with context).
func NewExtractTool(cs core.CodeSearch) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "extract",
		Source:      core.ToolSourceNative,
		Description: "Extracts a file, or a line range with surrounding context, from the repository.",
		Parameters: []core.ToolParameter{
			{Name: "file_path", Type: "string", Required: true, Description: "path to the file"},
			{Name: "line", Type: "number", Required: false, Description: "start line, 1-indexed"},
			{Name: "end_line", Type: "number", Required: false, Description: "end line, inclusive"},
			{Name: "context_lines", Type: "number", Required: false, Description: "lines of context around line/end_line"},
			{Name: "format", Type: "string", Required: false, Description: "output format, e.g. \"plain\", \"markdown\""},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			filePath, _ := args["file_path"].(string)
			if filePath == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "file_path is required"}, nil
			}
			p := core.ExtractParams{
				FilePath:     filePath,
				Line:         intArg(args["line"]),
				EndLine:      intArg(args["end_line"]),
				ContextLines: intArg(args["context_lines"]),
				Format:       stringArgOr(args["format"], ""),
			}
			return subprocessResultToToolResult(cs.Extract(ctx, p))
		},
	}
}

func subprocessResultToToolResult(res core.SubprocessResult, err error) (core.ToolResult, error) {
	if err != nil {
		return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
	}
	if res.ExitCode != 0 {
		msg := res.Stderr
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: msg}, nil
	}
	return core.ToolResult{Success: true, Payload: res.Stdout}, nil
}

func stringArgOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func boolArg(v any) bool {
	b, _ := v.(bool)
	return b
}

func intArg(v any) int {
	n, _ := numericArg(v)
	return int(n)
}
