package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/probelabs/probe-agent/pkg/httpclient"
)

// httpConn speaks JSON-RPC over plain HTTP or SSE-framed HTTP, using this
// module's retrying httpclient the same way the teacher toolset does.
type httpConn struct {
	url        string
	sse        bool
	httpClient *httpclient.Client
	nextID     int

	sessionMu sync.RWMutex
	sessionID string
}

func newHTTPConn(cfg ServerConfig) *httpConn {
	return &httpConn{
		url: cfg.URL,
		sse: cfg.effectiveTransport() == TransportSSE,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
			httpclient.WithMaxRetries(retriesOrDefault(cfg.RetryCount)),
			httpclient.WithBaseDelay(2*time.Second),
		),
		nextID: 1,
	}
}

func retriesOrDefault(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *httpConn) initialize(ctx context.Context) ([]toolInfo, error) {
	initResp, err := h.request(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      map[string]any{"name": clientInfo.Name, "version": clientInfo.Version},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: initialize failed: %w", err)
	}
	if initResp.Error != nil {
		return nil, fmt.Errorf("mcp: initialize error: %s", initResp.Error.Message)
	}

	listResp, err := h.request(ctx, "tools/list", nil)
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
	rawTools, ok := resultMap["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("mcp: tools/list response has no tools array")
	}

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

func (h *httpConn) callTool(ctx context.Context, name string, args map[string]any) (callResult, error) {
	resp, err := h.request(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
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

func firstTextField(resultMap map[string]any) string {
	content, _ := resultMap["content"].([]any)
	for _, c := range content {
		if cm, ok := c.(map[string]any); ok {
			if text, ok := cm["text"].(string); ok {
				return text
			}
		}
	}
	return "unknown error"
}

func (h *httpConn) request(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	h.nextID++
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: h.nextID, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	h.sessionMu.RLock()
	sid := h.sessionID
	h.sessionMu.RUnlock()
	if sid != "" {
		req.Header.Set("mcp-session-id", sid)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if newSID := resp.Header.Get("mcp-session-id"); newSID != "" {
		h.sessionMu.Lock()
		h.sessionID = newSID
		h.sessionMu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(resp)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out jsonRPCResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// readSSEResponse reads up to the first complete JSON-RPC event from an
// SSE stream, then stops — the multiplexer treats each MCP call as a
// single request/response even when the transport is SSE-framed.
func readSSEResponse(resp *http.Response) (*jsonRPCResponse, error) {
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	var data strings.Builder

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			s := strings.TrimSpace(string(line))
			switch {
			case s == "" && data.Len() > 0:
				var out jsonRPCResponse
				if jerr := json.Unmarshal([]byte(data.String()), &out); jerr == nil {
					return &out, nil
				}
				data.Reset()
			case strings.HasPrefix(s, "data:"):
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(s, "data:")))
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if data.Len() > 0 {
		var out jsonRPCResponse
		if jerr := json.Unmarshal([]byte(data.String()), &out); jerr == nil {
			return &out, nil
		}
	}
	return nil, fmt.Errorf("mcp: sse stream ended without a complete response")
}

func (h *httpConn) close() error         { return nil }
func (h *httpConn) serializeCalls() bool { return false }
