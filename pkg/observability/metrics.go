// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the agent loop.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// Loop metrics
	loopIterations    *prometheus.HistogramVec
	loopCompletions   *prometheus.CounterVec
	loopErrors        *prometheus.CounterVec
	loopCompactions   *prometheus.CounterVec

	// LLM metrics
	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	// Tool metrics
	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	// MCP metrics
	mcpCalls        *prometheus.CounterVec
	mcpReconnects   *prometheus.CounterVec
	mcpCallDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance from configuration.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initLoopMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initMCPMetrics()

	return m, nil
}

func (m *Metrics) initLoopMetrics() {
	m.loopIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "loop",
			Name:      "iterations",
			Help:      "Number of loop iterations consumed per Answer call",
			Buckets:   prometheus.LinearBuckets(1, 2, 16),
		},
		[]string{"persona"},
	)

	m.loopCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "loop",
			Name:      "completions_total",
			Help:      "Total number of Answer calls that reached a final result",
		},
		[]string{"persona"},
	)

	m.loopErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "loop",
			Name:      "errors_total",
			Help:      "Total number of Answer calls that ended in an AgentError",
		},
		[]string{"kind"},
	)

	m.loopCompactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "loop",
			Name:      "compactions_total",
			Help:      "Total number of history compactions performed",
		},
		[]string{"persona"},
	)

	m.registry.MustRegister(m.loopIterations, m.loopCompletions, m.loopErrors, m.loopCompactions)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM API calls",
		},
		[]string{"model", "provider"},
	)

	m.llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM API call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to 204s
		},
		[]string{"model", "provider"},
	)

	m.llmTokensInput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "tokens_input_total",
			Help:      "Total number of input tokens consumed",
		},
		[]string{"model", "provider"},
	)

	m.llmTokensOutput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "tokens_output_total",
			Help:      "Total number of output tokens generated",
		},
		[]string{"model", "provider"},
	)

	m.llmErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Total number of LLM API errors",
		},
		[]string{"model", "provider", "error_type"},
	)

	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"tool_name"},
	)

	m.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"tool_name"},
	)

	m.toolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "errors_total",
			Help:      "Total number of tool errors",
		},
		[]string{"tool_name", "error_type"},
	)

	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initMCPMetrics() {
	m.mcpCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "mcp",
			Name:      "calls_total",
			Help:      "Total number of MCP tool calls dispatched to a remote server",
		},
		[]string{"server"},
	)

	m.mcpReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "mcp",
			Name:      "reconnects_total",
			Help:      "Total number of MCP server reconnect attempts",
		},
		[]string{"server"},
	)

	m.mcpCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "mcp",
			Name:      "call_duration_seconds",
			Help:      "MCP tool call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"server"},
	)

	m.registry.MustRegister(m.mcpCalls, m.mcpReconnects, m.mcpCallDuration)
}

// =============================================================================
// Loop Metrics
// =============================================================================

// RecordLoopIterations records how many iterations one Answer call consumed.
func (m *Metrics) RecordLoopIterations(persona string, iterations int) {
	if m == nil {
		return
	}
	m.loopIterations.WithLabelValues(persona).Observe(float64(iterations))
}

// RecordLoopCompletion records a successful Answer call.
func (m *Metrics) RecordLoopCompletion(persona string) {
	if m == nil {
		return
	}
	m.loopCompletions.WithLabelValues(persona).Inc()
}

// RecordLoopError records an Answer call that ended in an AgentError.
func (m *Metrics) RecordLoopError(kind string) {
	if m == nil {
		return
	}
	m.loopErrors.WithLabelValues(kind).Inc()
}

// RecordLoopCompaction records one history compaction.
func (m *Metrics) RecordLoopCompaction(persona string) {
	if m == nil {
		return
	}
	m.loopCompactions.WithLabelValues(persona).Inc()
}

// =============================================================================
// LLM Metrics
// =============================================================================

// RecordLLMCall records an LLM API call.
func (m *Metrics) RecordLLMCall(model, provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, provider).Inc()
	m.llmCallDuration.WithLabelValues(model, provider).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage.
func (m *Metrics) RecordLLMTokens(model, provider string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmTokensInput.WithLabelValues(model, provider).Add(float64(inputTokens))
	m.llmTokensOutput.WithLabelValues(model, provider).Add(float64(outputTokens))
}

// RecordLLMError records an LLM error.
func (m *Metrics) RecordLLMError(model, provider, errorType string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, provider, errorType).Inc()
}

// =============================================================================
// Tool Metrics
// =============================================================================

// RecordToolCall records a tool invocation.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// RecordToolError records a tool error.
func (m *Metrics) RecordToolError(toolName, errorType string) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(toolName, errorType).Inc()
}

// =============================================================================
// MCP Metrics
// =============================================================================

// RecordMCPCall records a dispatched MCP tool call.
func (m *Metrics) RecordMCPCall(server string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mcpCalls.WithLabelValues(server).Inc()
	m.mcpCallDuration.WithLabelValues(server).Observe(duration.Seconds())
}

// RecordMCPReconnect records a reconnect attempt against an MCP server.
func (m *Metrics) RecordMCPReconnect(server string) {
	if m == nil {
		return
	}
	m.mcpReconnects.WithLabelValues(server).Inc()
}

// =============================================================================
// HTTP Handler
// =============================================================================

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
