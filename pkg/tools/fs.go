package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

// NewListFilesTool builds the `listFiles` descriptor: a .gitignore-aware
// directory listing confined to workdir.
func NewListFilesTool(workdir string) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "listFiles",
		Source:      core.ToolSourceNative,
		Description: "Lists files in a directory, skipping .gitignore'd entries.",
		Parameters: []core.ToolParameter{
			{Name: "directory", Type: "string", Required: false, Description: "directory relative to the repository root, default \".\""},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			dir, _ := args["directory"].(string)
			resolved, err := confine(workdir, dir)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailurePermissionDenied, Message: err.Error()}, nil
			}

			entries, err := os.ReadDir(resolved)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailureNotFound, Message: err.Error()}, nil
			}

			ignore := loadIgnoreSet(workdir)
			var names []string
			for _, e := range entries {
				if ignore.MatchesName(e.Name()) {
					continue
				}
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			return core.ToolResult{Success: true, Payload: strings.Join(names, "\n")}, nil
		},
	}
}

// NewSearchFilesTool builds the `searchFiles` descriptor: glob matching
// confined to workdir, optionally recursive.
func NewSearchFilesTool(workdir string) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "searchFiles",
		Source:      core.ToolSourceNative,
		Description: "Finds files by glob pattern, optionally walking subdirectories.",
		Parameters: []core.ToolParameter{
			{Name: "pattern", Type: "string", Required: true, Description: "glob pattern, e.g. \"*.go\""},
			{Name: "directory", Type: "string", Required: false, Description: "directory to search from, default \".\""},
			{Name: "recursive", Type: "boolean", Required: false, Description: "walk subdirectories, default true"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			pattern, _ := args["pattern"].(string)
			if pattern == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "pattern is required"}, nil
			}
			dir, _ := args["directory"].(string)
			recursive := true
			if b, ok := args["recursive"].(bool); ok {
				recursive = b
			}

			resolved, err := confine(workdir, dir)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailurePermissionDenied, Message: err.Error()}, nil
			}

			ignore := loadIgnoreSet(workdir)
			var matches []string
			walkErr := filepath.WalkDir(resolved, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if path != resolved && ignore.MatchesName(d.Name()) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if d.IsDir() {
					if !recursive && path != resolved {
						return filepath.SkipDir
					}
					return nil
				}
				if ok, _ := filepath.Match(pattern, d.Name()); ok {
					rel, relErr := filepath.Rel(workdir, path)
					if relErr != nil {
						rel = path
					}
					matches = append(matches, rel)
				}
				return nil
			})
			if walkErr != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: walkErr.Error()}, nil
			}

			sort.Strings(matches)
			if len(matches) == 0 {
				return core.ToolResult{Success: true, Payload: fmt.Sprintf("no files matched %q", pattern)}, nil
			}
			return core.ToolResult{Success: true, Payload: strings.Join(matches, "\n")}, nil
		},
	}
}
