package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolInfo is the transport-neutral shape one server advertises per tool,
// after the wire format (mcp-go's mcp.Tool, or a raw JSON-RPC map for the
// HTTP-family transports) has been normalized away.
type toolInfo struct {
	Name   string
	Desc   string
	Schema map[string]any
}

// callResult is the transport-neutral shape of one tools/call response.
type callResult struct {
	Text    string
	IsError bool
}

// conn is one live connection to an MCP server, independent of transport.
type conn interface {
	initialize(ctx context.Context) ([]toolInfo, error)
	callTool(ctx context.Context, name string, args map[string]any) (callResult, error)
	close() error
	// serializeCalls reports whether this transport carries one logical
	// stream that cannot interleave requests (stdio, websocket), so the
	// multiplexer must run concurrent callTool invocations one at a time.
	serializeCalls() bool
}

const protocolVersion = "2024-11-05"

var clientInfo = mcp.Implementation{Name: "probe-agent", Version: "0.1.0"}

// stdioConn wraps mcp-go's subprocess client.
type stdioConn struct {
	client *client.Client
}

func newStdioConn(ctx context.Context, cfg ServerConfig) (*stdioConn, error) {
	c, err := client.NewStdioMCPClient(cfg.Command, envSlice(cfg.Env), cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: failed to create stdio client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: failed to start stdio client: %w", err)
	}
	return &stdioConn{client: c}, nil
}

func (s *stdioConn) initialize(ctx context.Context) ([]toolInfo, error) {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = clientInfo
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := s.client.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("mcp: initialize failed: %w", err)
	}

	listResp, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: tools/list failed: %w", err)
	}

	tools := make([]toolInfo, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, toolInfo{Name: t.Name, Desc: t.Description, Schema: convertSchema(t.InputSchema)})
	}
	return tools, nil
}

func (s *stdioConn) callTool(ctx context.Context, name string, args map[string]any) (callResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := s.client.CallTool(ctx, req)
	if err != nil {
		return callResult{}, fmt.Errorf("mcp: tools/call failed: %w", err)
	}
	return extractContent(resp), nil
}

func (s *stdioConn) close() error         { return s.client.Close() }
func (s *stdioConn) serializeCalls() bool { return true }

func extractContent(resp *mcp.CallToolResult) callResult {
	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	out := callResult{IsError: resp.IsError}
	switch len(texts) {
	case 0:
		if resp.IsError {
			out.Text = "unknown error"
		}
	case 1:
		out.Text = texts[0]
	default:
		joined, _ := json.Marshal(texts)
		out.Text = string(joined)
	}
	return out
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
