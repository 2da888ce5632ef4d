package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn speaks JSON-RPC over a single persistent websocket connection.
// Like stdio, this is one logical stream: requests and responses must be
// paired one at a time, so serializeCalls reports true.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	nextID int
}

func newWSConn(ctx context.Context, cfg ServerConfig) (*wsConn, error) {
	dialer := websocket.Dialer{}
	c, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: websocket dial failed: %w", err)
	}
	return &wsConn{conn: c, nextID: 1}, nil
}

func (w *wsConn) initialize(ctx context.Context) ([]toolInfo, error) {
	initResp, err := w.request(jsonRPCRequest{Method: "initialize", Params: map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      map[string]any{"name": clientInfo.Name, "version": clientInfo.Version},
		"capabilities":    map[string]any{},
	}})
	if err != nil {
		return nil, fmt.Errorf("mcp: initialize failed: %w", err)
	}
	if initResp.Error != nil {
		return nil, fmt.Errorf("mcp: initialize error: %s", initResp.Error.Message)
	}

	listResp, err := w.request(jsonRPCRequest{Method: "tools/list"})
	if err != nil {
		return nil, fmt.Errorf("mcp: tools/list failed: %w", err)
	}
	if listResp.Error != nil {
		return nil, fmt.Errorf("mcp: tools/list error: %s", listResp.Error.Message)
	}

	resultMap, ok := listResp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("mcp: unexpected tools/list result shape")
	}
	rawTools, _ := resultMap["tools"].([]any)
	tools := make([]toolInfo, 0, len(rawTools))
	for _, raw := range rawTools {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		desc, _ := m["description"].(string)
		schema, _ := m["inputSchema"].(map[string]any)
		tools = append(tools, toolInfo{Name: name, Desc: desc, Schema: schema})
	}
	return tools, nil
}

func (w *wsConn) callTool(ctx context.Context, name string, args map[string]any) (callResult, error) {
	resp, err := w.request(jsonRPCRequest{Method: "tools/call", Params: map[string]any{"name": name, "arguments": args}})
	if err != nil {
		return callResult{}, fmt.Errorf("mcp: tools/call failed: %w", err)
	}
	if resp.Error != nil {
		return callResult{Text: resp.Error.Message, IsError: true}, nil
	}
	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return callResult{Text: fmt.Sprintf("%v", resp.Result)}, nil
	}
	if isErr, _ := resultMap["isError"].(bool); isErr {
		return callResult{Text: firstTextField(resultMap), IsError: true}, nil
	}
	content, _ := resultMap["content"].([]any)
	var texts []string
	for _, c := range content {
		cm, ok := c.(map[string]any)
		if !ok || cm["type"] != "text" {
			continue
		}
		if text, ok := cm["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	switch len(texts) {
	case 0:
		return callResult{}, nil
	case 1:
		return callResult{Text: texts[0]}, nil
	default:
		joined, _ := json.Marshal(texts)
		return callResult{Text: string(joined)}, nil
	}
}

// request writes one JSON-RPC request and reads the next frame as its
// response. The websocket's mutex enforces the one-in-flight-at-a-time
// rule the multiplexer also applies at the queueing layer.
func (w *wsConn) request(req jsonRPCRequest) (*jsonRPCResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	req.JSONRPC = "2.0"
	req.ID = w.nextID

	if err := w.conn.WriteJSON(req); err != nil {
		return nil, err
	}
	var resp jsonRPCResponse
	if err := w.conn.ReadJSON(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (w *wsConn) close() error         { return w.conn.Close() }
func (w *wsConn) serializeCalls() bool { return true }
