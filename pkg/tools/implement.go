package tools

import (
	"context"

	"github.com/probelabs/probe-agent/pkg/core"
)

// NewImplementTool builds the `implement` descriptor: the code-editing tool,
// delegating the actual edit to an external core.Implementer rather than
// doing it in-core. (`bash` is also marked MutatesRepo.)
func NewImplementTool(impl core.Implementer) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "implement",
		Source:      core.ToolSourceNative,
		Description: "Delegates a code-editing task to the implementation engine.",
		MutatesRepo: true,
		Parameters: []core.ToolParameter{
			{Name: "task", Type: "string", Required: true, Description: "description of the change to make"},
			{Name: "autoCommits", Type: "boolean", Required: false, Description: "commit the change automatically once applied"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			task, _ := args["task"].(string)
			if task == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "task is required"}, nil
			}
			summary, err := impl.Implement(ctx, task, boolArg(args["autoCommits"]))
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
			}
			return core.ToolResult{Success: true, Payload: summary}, nil
		},
	}
}

// NewAttemptCompletionTool builds the `attempt_completion` descriptor. The
// Agent Loop intercepts this call by name before dispatch (it terminates
// the loop rather than running a tool), so Execute here only serves direct
// unit testing and system-prompt rendering.
func NewAttemptCompletionTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "attempt_completion",
		Source:      core.ToolSourceNative,
		Description: "Signals that the task is complete and returns the final result.",
		Suspends:    true,
		Parameters: []core.ToolParameter{
			{Name: "result", Type: "string", Required: true, Description: "the final answer to return to the caller"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			result, _ := args["result"].(string)
			return core.ToolResult{Success: true, Payload: result}, nil
		},
	}
}
