package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
)

// reconnectMaxAttempts and reconnectBaseDelay bound how hard the
// multiplexer tries to re-dial a server whose connection just died before
// giving up and reporting the original transport error back as a tool
// failure. A var (not a const) so tests can shrink the delay.
var (
	reconnectMaxAttempts = 3
	reconnectBaseDelay   = 100 * time.Millisecond
)

// connectedServer is one live server: its transport connection, the tools
// it advertised, and (for single-stream transports) a mutex so concurrent
// tool calls against the same server never interleave on the wire. The
// mutex does not guarantee that waiting calls run in arrival order.
type connectedServer struct {
	name   string
	cfg    ServerConfig
	conn   conn
	tools  []toolInfo
	callMu sync.Mutex // held only when conn.serializeCalls()
}

// Multiplexer owns one connection per configured MCP server and presents
// every server's tools as core.ToolDescriptor values the tool registry can
// dispatch uniformly alongside native tools.
type Multiplexer struct {
	mu      sync.RWMutex
	servers map[string]*connectedServer
	logger  *slog.Logger
}

// New builds an empty Multiplexer. Call Initialize to connect configured
// servers.
func New(logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{servers: make(map[string]*connectedServer), logger: logger}
}

// Initialize connects every enabled server in cfg. A single server's
// connection failure is logged and skipped rather than aborting the whole
// multiplexer — MCP servers are optional capabilities, not hard
// dependencies of the agent loop.
func (m *Multiplexer) Initialize(ctx context.Context, cfg Config) error {
	for name, sc := range cfg.Servers {
		if !sc.IsEnabled() {
			continue
		}
		if err := m.connectOne(ctx, name, sc); err != nil {
			m.logger.Warn("mcp: server connection failed", "server", name, "error", err)
		}
	}
	return nil
}

// dialFunc is a package-level indirection over dial so tests can substitute
// a fake transport without needing a real subprocess, socket, or server.
var dialFunc = dial

func (m *Multiplexer) connectOne(ctx context.Context, name string, sc ServerConfig) error {
	c, err := dialFunc(ctx, sc)
	if err != nil {
		return err
	}

	tools, err := c.initialize(ctx)
	if err != nil {
		_ = c.close()
		return err
	}

	cs := &connectedServer{name: name, cfg: sc, conn: c, tools: tools}

	m.mu.Lock()
	m.servers[name] = cs
	m.mu.Unlock()

	m.logger.Info("mcp: connected", "server", name, "transport", sc.effectiveTransport(), "tools", len(tools))
	return nil
}

func dial(ctx context.Context, sc ServerConfig) (conn, error) {
	switch sc.effectiveTransport() {
	case TransportStdio:
		return newStdioConn(ctx, sc)
	case TransportWS:
		return newWSConn(ctx, sc)
	case TransportSSE, TransportHTTP:
		return newHTTPConn(sc), nil
	default:
		return nil, fmt.Errorf("mcp: unknown transport %q", sc.effectiveTransport())
	}
}

// ToolDescriptors returns one core.ToolDescriptor per tool across every
// connected server, named mcp__<server>__<tool>.
func (m *Multiplexer) ToolDescriptors() []core.ToolDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.ToolDescriptor
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, serverName := range names {
		cs := m.servers[serverName]
		for _, t := range cs.tools {
			t := t
			qualified := core.MCPToolName(serverName, t.Name)
			out = append(out, core.ToolDescriptor{
				Name:        qualified,
				Source:      core.ToolSourceMCP,
				Description: buildXMLDescription(t),
				Schema:      t.Schema,
				Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
					return m.callTool(ctx, serverName, t.Name, args)
				},
			})
		}
	}
	return out
}

// callTool locates the server, forwards tools/call, and retries the call
// exactly once after reconnecting if the first attempt fails at the
// transport level (as opposed to the tool itself returning an MCP-level
// error, which is reported back to the model unchanged).
func (m *Multiplexer) callTool(ctx context.Context, serverName, toolName string, args map[string]any) (core.ToolResult, error) {
	m.mu.RLock()
	cs, ok := m.servers[serverName]
	m.mu.RUnlock()
	if !ok {
		return core.ToolResult{Success: false, FailureKind: core.FailureNotFound, Message: fmt.Sprintf("mcp server %q not connected", serverName)}, nil
	}

	res, err := m.dispatchOn(ctx, cs, toolName, args)
	if err == nil {
		return res, nil
	}

	m.logger.Warn("mcp: transport error, reconnecting", "server", serverName, "tool", toolName, "error", err)
	if reErr := m.reconnect(ctx, cs); reErr != nil {
		return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
	}

	m.mu.RLock()
	cs = m.servers[serverName]
	m.mu.RUnlock()

	res, err = m.dispatchOn(ctx, cs, toolName, args)
	if err != nil {
		return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
	}
	return res, nil
}

func (m *Multiplexer) dispatchOn(ctx context.Context, cs *connectedServer, toolName string, args map[string]any) (core.ToolResult, error) {
	if cs.conn.serializeCalls() {
		cs.callMu.Lock()
		defer cs.callMu.Unlock()
	}

	cr, err := cs.conn.callTool(ctx, toolName, args)
	if err != nil {
		return core.ToolResult{}, err
	}
	if cr.IsError {
		return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: cr.Text}, nil
	}
	return core.ToolResult{Success: true, Payload: cr.Text, DiscoveredImages: nil}, nil
}

// reconnect re-dials a server with exponential backoff, giving up after
// reconnectMaxAttempts. The first attempt runs immediately; each
// subsequent one waits longer, so a server that is merely restarting has
// a real chance to come back before the tool call is failed to the model.
func (m *Multiplexer) reconnect(ctx context.Context, cs *connectedServer) error {
	_ = cs.conn.close()

	var lastErr error
	for attempt := 0; attempt < reconnectMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := reconnectBaseDelay << uint(attempt-1)
			m.logger.Warn("mcp: reconnect attempt failed, backing off", "server", cs.name, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		c, err := dialFunc(ctx, cs.cfg)
		if err != nil {
			lastErr = err
			continue
		}
		tools, err := c.initialize(ctx)
		if err != nil {
			_ = c.close()
			lastErr = err
			continue
		}

		m.mu.Lock()
		cs.conn = c
		cs.tools = tools
		m.mu.Unlock()
		return nil
	}

	return fmt.Errorf("mcp: reconnect to %q failed after %d attempts: %w", cs.name, reconnectMaxAttempts, lastErr)
}

// Disconnect closes every server connection. It is idempotent: calling it
// twice, or on a Multiplexer with no connected servers, is a no-op.
func (m *Multiplexer) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, cs := range m.servers {
		if err := cs.conn.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.servers, name)
	}
	return firstErr
}

// buildXMLDescription synthesizes the XML usage description for an MCP
// tool from its JSON-Schema input shape, matching the registry's
// convention for native tools while still using a single <params> JSON
// blob per the MCP-JSON calling dialect.
func buildXMLDescription(t toolInfo) string {
	var b strings.Builder
	b.WriteString(t.Desc)
	if t.Schema == nil {
		return b.String()
	}
	if pretty, err := json.MarshalIndent(t.Schema, "", "  "); err == nil {
		b.WriteString("\n\nParameters schema:\n")
		b.Write(pretty)
	}
	return b.String()
}
