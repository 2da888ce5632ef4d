// Package tools implements the tool registry and dispatcher:
// the table of executable tools and their XML descriptions, and the
// machinery to run one tool call, harvest discovered images, and enforce
// path confinement.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/observability"
)

// RegistryError is this package's typed error, modelled on this module's
// component/action/message error idiom (see core.AgentError).
type RegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// Registry holds every enabled tool and dispatches calls to them. It
// implements core.Dispatcher. A tool name is unique regardless of which
// server or builtin contributed it — registering an MCP tool under a name
// a native tool already owns replaces the native one, matching how a
// reconnecting MCP server's descriptors should win over stale entries.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]core.ToolDescriptor
	metrics *observability.Metrics
}

// Builder constructs a Registry via fluent With... calls, matching this
// module's builder idiom.
type Builder struct {
	r *Registry
}

// NewBuilder starts a Registry build.
func NewBuilder() *Builder {
	return &Builder{r: &Registry{tools: make(map[string]core.ToolDescriptor)}}
}

// WithMetrics installs an observability.Metrics sink for per-tool counters.
func (b *Builder) WithMetrics(m *observability.Metrics) *Builder {
	b.r.metrics = m
	return b
}

// Build finalizes the Registry.
func (b *Builder) Build() *Registry { return b.r }

// Register adds or replaces a tool descriptor.
func (r *Registry) Register(desc core.ToolDescriptor) error {
	if desc.Name == "" {
		return &RegistryError{Component: "registry", Action: "register", Message: "tool name cannot be empty"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[desc.Name] = desc
	return nil
}

// Remove deregisters a tool, e.g. when an MCP server disconnects.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return &RegistryError{Component: "registry", Action: "remove", Message: fmt.Sprintf("tool %q not registered", name)}
	}
	delete(r.tools, name)
	return nil
}

// HasTool implements core.ToolNameSource.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// IsMCPTool implements core.ToolNameSource.
func (r *Registry) IsMCPTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return ok && d.IsMCP()
}

// Get returns a tool descriptor by name.
func (r *Registry) Get(name string) (core.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// List returns every registered tool descriptor, sorted by name.
func (r *Registry) List() []core.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]core.ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		items = append(items, d)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// DescribeTools is the introspection path for a CLI's --list-tools flag or
// similar: unlike RenderToolsSection, which renders the system-prompt text
// the model sees, this returns the raw descriptors for a machine-readable
// listing. An empty source filters nothing; otherwise only tools whose
// Source matches are returned, e.g. core.ToolSourceMCP to show only what a
// configured MCP server contributed.
func (r *Registry) DescribeTools(source core.ToolSourceKind) []core.ToolDescriptor {
	all := r.List()
	if source == "" {
		return all
	}
	filtered := make([]core.ToolDescriptor, 0, len(all))
	for _, d := range all {
		if d.Source == source {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Dispatch implements core.Dispatcher: it resolves the tool, runs it
// inside a trace span, and records execution metrics — mirroring this
// module's tool-execution instrumentation idiom.
func (r *Registry) Dispatch(ctx context.Context, session *core.AgentSession, call core.ToolCall) (core.ToolResult, error) {
	desc, ok := r.Get(call.Name)
	if !ok {
		return core.ToolResult{Success: false, FailureKind: core.FailureNotFound, Message: fmt.Sprintf("unknown tool %q", call.Name)}, nil
	}

	ctx, span := observability.StartToolSpan(ctx, call.Name)
	defer span.End()

	start := time.Now()
	result, err := desc.Execute(ctx, call.Parameters)
	duration := time.Since(start)

	if r.metrics != nil {
		r.metrics.RecordToolCall(call.Name, duration)
		if err != nil {
			r.metrics.RecordToolError(call.Name, errorTypeOf(err))
		} else if !result.Success {
			r.metrics.RecordToolError(call.Name, string(result.FailureKind))
		}
	}
	if err != nil {
		span.RecordError(err)
	}

	return result, err
}

// errorTypeOf reduces a dispatch error to a low-cardinality label suitable
// for a Prometheus metric; the full error text stays in logs, not labels.
func errorTypeOf(err error) string {
	var agentErr *core.AgentError
	if errors.As(err, &agentErr) {
		return string(agentErr.Kind)
	}
	return "execution_failure"
}

// RenderToolsSection renders the "## Available Tools" system-prompt
// section plus one "## <name>" block per tool.
func (r *Registry) RenderToolsSection() string {
	toolList := r.List()

	var b strings.Builder
	b.WriteString("## Available Tools\n\n")
	for _, t := range toolList {
		b.WriteString(fmt.Sprintf("- `%s`: %s\n", t.Name, t.Description))
	}
	b.WriteString("\n")

	for _, t := range toolList {
		b.WriteString(fmt.Sprintf("## %s\n\n", t.Name))
		if len(t.Parameters) > 0 {
			b.WriteString("| Param | Type | Required | Description |\n|---|---|---|---|\n")
			for _, p := range t.Parameters {
				b.WriteString(fmt.Sprintf("| %s | %s | %v | %s |\n", p.Name, p.Type, p.Required, p.Description))
			}
			b.WriteString("\n")
		}
		b.WriteString(renderXMLExample(t))
		b.WriteString("\n\n")
	}

	return b.String()
}

func renderXMLExample(t core.ToolDescriptor) string {
	if t.IsMCP() {
		return fmt.Sprintf("```\n<%s>\n<params>\n{ ... }\n</params>\n</%s>\n```", t.Name, t.Name)
	}
	var b strings.Builder
	b.WriteString("```\n<" + t.Name + ">")
	for _, p := range t.Parameters {
		b.WriteString(fmt.Sprintf("<%s>%s</%s>", p.Name, p.Description, p.Name))
	}
	b.WriteString("</" + t.Name + ">\n```")
	return b.String()
}
