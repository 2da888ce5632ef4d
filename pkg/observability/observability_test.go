package observability

import (
	"testing"
	"time"
)

func TestLoopMetricsRecording(t *testing.T) {
	var m *Metrics

	m.RecordLoopIterations("code-explorer", 3)
	m.RecordLoopCompletion("code-explorer")
	m.RecordLoopError("stuck_loop")
	m.RecordLoopCompaction("code-explorer")

	t.Log("loop metrics recorded successfully (nil-safe)")
}

func TestToolMetricsRecording(t *testing.T) {
	var m *Metrics

	m.RecordToolCall("search", 50*time.Millisecond)
	m.RecordToolCall("bash", 100*time.Millisecond)
	m.RecordToolError("bash", "execution_failure")

	t.Log("tool metrics recorded successfully (nil-safe)")
}

func TestLLMMetricsRecording(t *testing.T) {
	var m *Metrics

	m.RecordLLMCall("claude-sonnet-4", "anthropic", 500*time.Millisecond)
	m.RecordLLMTokens("claude-sonnet-4", "anthropic", 1200, 340)
	m.RecordLLMError("claude-sonnet-4", "anthropic", "rate_limited")

	t.Log("LLM metrics recorded successfully (nil-safe)")
}

func TestMCPMetricsRecording(t *testing.T) {
	var m *Metrics

	m.RecordMCPCall("github", 25*time.Millisecond)
	m.RecordMCPReconnect("github")

	t.Log("MCP metrics recorded successfully (nil-safe)")
}

func TestNoopMetrics(t *testing.T) {
	var r Recorder = NoopMetrics{}

	r.RecordLoopCompletion("code-explorer")
	r.RecordToolCall("search", 10*time.Millisecond)
	r.RecordLLMCall("test-model", "test-provider", 10*time.Millisecond)
	r.RecordMCPCall("test-server", 10*time.Millisecond)

	t.Log("noop metrics handled correctly")
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg := &TracingConfig{Enabled: true}
	cfg.SetDefaults()

	if cfg.Exporter != "otlp" {
		t.Errorf("expected default exporter otlp, got %q", cfg.Exporter)
	}
	if cfg.ServiceName != DefaultServiceName {
		t.Errorf("expected default service name %q, got %q", DefaultServiceName, cfg.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestMetricsConfigDefaults(t *testing.T) {
	cfg := &MetricsConfig{Enabled: true}
	cfg.SetDefaults()

	if cfg.Namespace != "probe_agent" {
		t.Errorf("expected default namespace probe_agent, got %q", cfg.Namespace)
	}
	if cfg.Endpoint != DefaultMetricsPath {
		t.Errorf("expected default endpoint %q, got %q", DefaultMetricsPath, cfg.Endpoint)
	}
}
