package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
)

func TestServerConfigDefaults(t *testing.T) {
	var sc ServerConfig
	if sc.Timeout().Seconds() != 30 {
		t.Errorf("expected default 30s timeout, got %v", sc.Timeout())
	}
	if !sc.IsEnabled() {
		t.Errorf("expected nil Enabled to default to true")
	}
	disabled := false
	sc.Enabled = &disabled
	if sc.IsEnabled() {
		t.Errorf("expected explicit Enabled=false to stick")
	}
}

func TestEffectiveTransportInfersStdioFromCommand(t *testing.T) {
	sc := ServerConfig{Command: "probe-mcp-server"}
	if sc.effectiveTransport() != TransportStdio {
		t.Errorf("expected stdio, got %s", sc.effectiveTransport())
	}
	sc2 := ServerConfig{URL: "http://localhost:9000"}
	if sc2.effectiveTransport() != TransportHTTP {
		t.Errorf("expected http default, got %s", sc2.effectiveTransport())
	}
	sc3 := ServerConfig{URL: "http://localhost:9000", Transport: TransportSSE}
	if sc3.effectiveTransport() != TransportSSE {
		t.Errorf("expected explicit sse to be honored, got %s", sc3.effectiveTransport())
	}
}

func TestLoadParsesServersMap(t *testing.T) {
	data := []byte(`{"mcpServers": {"github": {"command": "gh-mcp", "args": ["serve"]}}}`)
	cfg, err := Load(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, ok := cfg.Servers["github"]
	if !ok {
		t.Fatalf("expected a github server entry")
	}
	if sc.Command != "gh-mcp" || len(sc.Args) != 1 || sc.Args[0] != "serve" {
		t.Errorf("sc = %+v", sc)
	}
}

// fakeConn is an in-memory conn used to test the multiplexer without any
// real subprocess, socket, or HTTP server.
type fakeConn struct {
	tools        []toolInfo
	callErr      error
	callResult   callResult
	closed       bool
	serializeVal bool
	calls        int
}

func (f *fakeConn) initialize(ctx context.Context) ([]toolInfo, error) { return f.tools, nil }
func (f *fakeConn) callTool(ctx context.Context, name string, args map[string]any) (callResult, error) {
	f.calls++
	if f.callErr != nil {
		return callResult{}, f.callErr
	}
	return f.callResult, nil
}
func (f *fakeConn) close() error         { f.closed = true; return nil }
func (f *fakeConn) serializeCalls() bool { return f.serializeVal }

func TestToolDescriptorsAreQualifiedWithServerName(t *testing.T) {
	m := New(nil)
	m.servers["github"] = &connectedServer{
		name: "github",
		conn: &fakeConn{},
		tools: []toolInfo{
			{Name: "search_issues", Desc: "search issues", Schema: map[string]any{"type": "object"}},
		},
	}

	descs := m.ToolDescriptors()
	if len(descs) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descs))
	}
	if descs[0].Name != "mcp__github__search_issues" {
		t.Errorf("Name = %q", descs[0].Name)
	}
	if !descs[0].IsMCP() {
		t.Errorf("expected IsMCP() true")
	}
}

func TestCallToolReturnsToolResultOnSuccess(t *testing.T) {
	m := New(nil)
	fc := &fakeConn{callResult: callResult{Text: "42 results"}}
	m.servers["github"] = &connectedServer{name: "github", conn: fc, cfg: ServerConfig{Command: "gh-mcp"}}

	res, err := m.callTool(context.Background(), "github", "search_issues", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Payload != "42 results" {
		t.Errorf("res = %+v", res)
	}
	if fc.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", fc.calls)
	}
}

func TestCallToolReportsMCPLevelErrorAsFailure(t *testing.T) {
	m := New(nil)
	fc := &fakeConn{callResult: callResult{Text: "rate limited", IsError: true}}
	m.servers["github"] = &connectedServer{name: "github", conn: fc, cfg: ServerConfig{Command: "gh-mcp"}}

	res, err := m.callTool(context.Background(), "github", "search_issues", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.FailureKind != core.FailureExecution || res.Message != "rate limited" {
		t.Errorf("res = %+v", res)
	}
}

func TestCallToolUnknownServerReturnsNotFound(t *testing.T) {
	m := New(nil)
	res, err := m.callTool(context.Background(), "missing", "tool", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.FailureKind != core.FailureNotFound {
		t.Errorf("res = %+v", res)
	}
}

func TestCallToolReconnectsOnceOnTransportError(t *testing.T) {
	original := &fakeConn{callErr: errors.New("broken pipe")}
	replacement := &fakeConn{callResult: callResult{Text: "recovered"}}

	dialCalls := 0
	prevDial := dialFunc
	dialFunc = func(ctx context.Context, sc ServerConfig) (conn, error) {
		dialCalls++
		return replacement, nil
	}
	defer func() { dialFunc = prevDial }()

	m := New(nil)
	m.servers["flaky"] = &connectedServer{name: "flaky", conn: original, cfg: ServerConfig{Command: "flaky-mcp"}}

	res, err := m.callTool(context.Background(), "flaky", "tool", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Payload != "recovered" {
		t.Errorf("res = %+v", res)
	}
	if !original.closed {
		t.Errorf("expected the original connection to be closed before reconnecting")
	}
	if dialCalls != 1 {
		t.Errorf("expected exactly 1 reconnect dial, got %d", dialCalls)
	}
}

func TestCallToolGivesUpIfReconnectAlsoFails(t *testing.T) {
	prevDelay := reconnectBaseDelay
	reconnectBaseDelay = time.Millisecond
	defer func() { reconnectBaseDelay = prevDelay }()

	original := &fakeConn{callErr: errors.New("broken pipe")}

	prevDial := dialFunc
	dialFunc = func(ctx context.Context, sc ServerConfig) (conn, error) {
		return nil, errors.New("dial failed")
	}
	defer func() { dialFunc = prevDial }()

	m := New(nil)
	m.servers["flaky"] = &connectedServer{name: "flaky", conn: original, cfg: ServerConfig{Command: "flaky-mcp"}}

	res, err := m.callTool(context.Background(), "flaky", "tool", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Errorf("expected failure result when reconnect also fails")
	}
}

func TestReconnectRetriesWithBackoffBeforeSucceeding(t *testing.T) {
	prevDelay := reconnectBaseDelay
	reconnectBaseDelay = time.Millisecond
	defer func() { reconnectBaseDelay = prevDelay }()

	original := &fakeConn{callErr: errors.New("broken pipe")}
	replacement := &fakeConn{callResult: callResult{Text: "recovered"}}

	dialCalls := 0
	prevDial := dialFunc
	dialFunc = func(ctx context.Context, sc ServerConfig) (conn, error) {
		dialCalls++
		if dialCalls < 3 {
			return nil, errors.New("connection refused")
		}
		return replacement, nil
	}
	defer func() { dialFunc = prevDial }()

	m := New(nil)
	m.servers["flaky"] = &connectedServer{name: "flaky", conn: original, cfg: ServerConfig{Command: "flaky-mcp"}}

	res, err := m.callTool(context.Background(), "flaky", "tool", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Payload != "recovered" {
		t.Errorf("res = %+v", res)
	}
	if dialCalls != 3 {
		t.Errorf("expected 3 dial attempts before success, got %d", dialCalls)
	}
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	prevDelay := reconnectBaseDelay
	reconnectBaseDelay = time.Millisecond
	defer func() { reconnectBaseDelay = prevDelay }()

	original := &fakeConn{callErr: errors.New("broken pipe")}

	dialCalls := 0
	prevDial := dialFunc
	dialFunc = func(ctx context.Context, sc ServerConfig) (conn, error) {
		dialCalls++
		return nil, errors.New("connection refused")
	}
	defer func() { dialFunc = prevDial }()

	m := New(nil)
	cs := &connectedServer{name: "flaky", conn: original, cfg: ServerConfig{Command: "flaky-mcp"}}
	m.servers["flaky"] = cs

	err := m.reconnect(context.Background(), cs)
	if err == nil {
		t.Fatal("expected an error once every reconnect attempt fails")
	}
	if dialCalls != reconnectMaxAttempts {
		t.Errorf("expected %d dial attempts, got %d", reconnectMaxAttempts, dialCalls)
	}
}

func TestSerializedServerCallsUseConnectionMutex(t *testing.T) {
	fc := &fakeConn{serializeVal: true, callResult: callResult{Text: "ok"}}
	cs := &connectedServer{name: "stdio-server", conn: fc}
	m := New(nil)

	if locked := cs.callMu.TryLock(); !locked {
		t.Fatalf("expected callMu to start unlocked")
	}
	cs.callMu.Unlock()

	cs.callMu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := m.dispatchOn(context.Background(), cs, "tool", nil)
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("expected dispatchOn to wait while the connection mutex is held")
	case <-time.After(20 * time.Millisecond):
	}
	cs.callMu.Unlock()

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDisconnectClosesEveryServerAndIsIdempotent(t *testing.T) {
	fc := &fakeConn{}
	m := New(nil)
	m.servers["s"] = &connectedServer{name: "s", conn: fc}

	if err := m.Disconnect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fc.closed {
		t.Errorf("expected connection to be closed")
	}
	if len(m.servers) != 0 {
		t.Errorf("expected servers map to be emptied")
	}
	if err := m.Disconnect(); err != nil {
		t.Fatalf("second Disconnect should be a no-op, got error: %v", err)
	}
}
