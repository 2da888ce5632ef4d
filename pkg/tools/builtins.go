package tools

import (
	"github.com/probelabs/probe-agent/pkg/core"
)

// BuiltinDeps collects the external collaborators the built-in tool set
// needs. CodeSearch and Implementer may be nil, in which case the tools
// that need them are skipped rather than registered broken.
type BuiltinDeps struct {
	Workdir    string
	CodeSearch core.CodeSearch
	Implement  core.Implementer
	Permission PermissionChecker
}

// RegisterBuiltins registers every built-in tool this module ships against
// r, skipping any whose collaborator was not supplied.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	descriptors := []core.ToolDescriptor{
		NewListFilesTool(deps.Workdir),
		NewSearchFilesTool(deps.Workdir),
		NewReadImageTool(deps.Workdir),
		NewAttemptCompletionTool(),
	}

	if deps.Permission != nil {
		descriptors = append(descriptors, NewBashTool(deps.Workdir, deps.Permission))
	}
	if deps.CodeSearch != nil {
		descriptors = append(descriptors,
			NewSearchTool(deps.CodeSearch, deps.Workdir),
			NewQueryTool(deps.CodeSearch, deps.Workdir),
			NewExtractTool(deps.CodeSearch),
		)
	}
	if deps.Implement != nil {
		descriptors = append(descriptors, NewImplementTool(deps.Implement))
	}

	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
