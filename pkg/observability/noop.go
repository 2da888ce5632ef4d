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
)

// NoopManager returns a no-operation Manager that does nothing.
// Use this when observability is completely disabled.
func NoopManager() *Manager {
	return &Manager{}
}

// NoopMetrics is a metrics implementation that does nothing. It satisfies
// Recorder so callers can depend on the interface and pass either a real
// *Metrics or NoopMetrics without a nil check at every call site.
type NoopMetrics struct{}

func (NoopMetrics) RecordLoopIterations(_ string, _ int) {}
func (NoopMetrics) RecordLoopCompletion(_ string)        {}
func (NoopMetrics) RecordLoopError(_ string)             {}
func (NoopMetrics) RecordLoopCompaction(_ string)        {}

func (NoopMetrics) RecordLLMCall(_, _ string, _ time.Duration) {}
func (NoopMetrics) RecordLLMTokens(_, _ string, _, _ int)      {}
func (NoopMetrics) RecordLLMError(_, _, _ string)              {}

func (NoopMetrics) RecordToolCall(_ string, _ time.Duration) {}
func (NoopMetrics) RecordToolError(_, _ string)              {}

func (NoopMetrics) RecordMCPCall(_ string, _ time.Duration) {}
func (NoopMetrics) RecordMCPReconnect(_ string)             {}

// Handler returns a handler that reports metrics are not enabled.
func (NoopMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("metrics not enabled"))
	})
}

// Recorder is the subset of *Metrics that components record against. It
// lets a component hold a Recorder field that is either a real *Metrics or
// NoopMetrics, without a nil check at every call site.
type Recorder interface {
	RecordLoopIterations(persona string, iterations int)
	RecordLoopCompletion(persona string)
	RecordLoopError(kind string)
	RecordLoopCompaction(persona string)

	RecordLLMCall(model, provider string, duration time.Duration)
	RecordLLMTokens(model, provider string, inputTokens, outputTokens int)
	RecordLLMError(model, provider, errorType string)

	RecordToolCall(toolName string, duration time.Duration)
	RecordToolError(toolName, errorType string)

	RecordMCPCall(server string, duration time.Duration)
	RecordMCPReconnect(server string)
}

// Ensure implementations satisfy the interface.
var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = NoopMetrics{}
)
