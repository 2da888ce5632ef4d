package tools

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/permission"
)

const defaultBashTimeout = 60 * time.Second

// PermissionChecker is the slice of permission.Checker the bash tool needs.
type PermissionChecker interface {
	Check(raw string) permission.Decision
}

// NewBashTool builds the `bash` descriptor: subprocess execution gated by a
// PermissionChecker, mirroring this module's command-execution idiom
// (context-bounded exec.CommandContext, combined output, exit-code capture).
func NewBashTool(workdir string, checker PermissionChecker) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "bash",
		Source:      core.ToolSourceNative,
		Description: "Runs a shell command in the repository working directory, subject to an allow/deny policy.",
		Parameters: []core.ToolParameter{
			{Name: "command", Type: "string", Required: true, Description: "the shell command to run"},
			{Name: "timeout", Type: "number", Required: false, Description: "timeout in seconds, default 60"},
		},
		MutatesRepo: true,
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			raw, _ := args["command"].(string)
			if raw == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "command is required"}, nil
			}

			decision := checker.Check(raw)
			if !decision.Allowed {
				return core.ToolResult{
					Success:     false,
					FailureKind: core.FailurePermissionDenied,
					Message:     fmt.Sprintf("command denied: %s", decision.Reason),
				}, nil
			}

			timeout := defaultBashTimeout
			if secs, ok := numericArg(args["timeout"]); ok && secs > 0 {
				timeout = time.Duration(secs * float64(time.Second))
			}

			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "sh", "-c", raw)
			cmd.Dir = workdir
			out, err := cmd.CombinedOutput()

			if runCtx.Err() == context.DeadlineExceeded {
				return core.ToolResult{
					Success:     false,
					FailureKind: core.FailureExecution,
					Message:     fmt.Sprintf("command timed out after %s", timeout),
				}, nil
			}

			exitCode := 0
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					exitCode = exitErr.ExitCode()
				} else {
					return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
				}
			}

			payload := string(out)
			if exitCode != 0 {
				return core.ToolResult{
					Success:     false,
					FailureKind: core.FailureExecution,
					Message:     fmt.Sprintf("exit status %d\n%s", exitCode, payload),
				}, nil
			}

			return core.ToolResult{Success: true, Payload: payload, DiscoveredImages: ScanForImages(payload, workdir)}, nil
		},
	}
}

func numericArg(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
