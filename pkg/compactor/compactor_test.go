package compactor

import (
	"strings"
	"testing"

	"github.com/probelabs/probe-agent/pkg/core"
)

func buildHistory(humanTurns int, toolResultsPerTurn int) core.History {
	h := core.History{core.NewTextMessage(core.RoleSystem, "system preamble")}
	for i := 0; i < humanTurns; i++ {
		h = h.Append(core.NewTextMessage(core.RoleUser, "question"))
		for j := 0; j < toolResultsPerTurn; j++ {
			h = h.Append(core.NewTextMessage(core.RoleAssistant, "<search>...</search>"))
			h = h.Append(core.NewSyntheticMessage(`<tool_result tool="search">some output</tool_result>`))
		}
	}
	return h
}

func TestCompactPreservesSystemAndHumanTurns(t *testing.T) {
	h := buildHistory(3, 2)
	c := New()
	out, stats := c.Compact(h, core.CompactOptions{KeepLastSegments: 1})

	if out[0].Role != core.RoleSystem {
		t.Fatalf("expected index 0 to remain system, got %s", out[0].Role)
	}

	humanCount := 0
	for _, m := range out {
		if m.Role == core.RoleUser && !m.Synthetic {
			humanCount++
		}
	}
	if humanCount != 3 {
		t.Errorf("expected 3 human turns preserved, got %d", humanCount)
	}
	if stats.Removed <= 0 {
		t.Errorf("expected some messages removed, got stats=%+v", stats)
	}
}

func TestCompactKeepsLastSegmentVerbatim(t *testing.T) {
	h := buildHistory(2, 2)
	c := New()
	out, _ := c.Compact(h, core.CompactOptions{KeepLastSegments: 1})

	lastSegmentAssistantCount := 0
	for _, m := range out {
		if m.Role == core.RoleAssistant {
			lastSegmentAssistantCount++
		}
	}
	if lastSegmentAssistantCount != 2 {
		t.Errorf("expected last segment's 2 assistant turns preserved verbatim, got %d", lastSegmentAssistantCount)
	}
}

func TestCompactReplacesOldSegmentsWithSummary(t *testing.T) {
	h := buildHistory(2, 2)
	c := New()
	out, _ := c.Compact(h, core.CompactOptions{KeepLastSegments: 1})

	foundSummary := false
	for _, m := range out {
		if strings.Contains(m.Text(), "<segment_summary>") {
			foundSummary = true
			if !strings.Contains(m.Text(), "used tools: search") {
				t.Errorf("summary missing tool name: %q", m.Text())
			}
			if !strings.Contains(m.Text(), "produced 2 tool results") {
				t.Errorf("summary missing result count: %q", m.Text())
			}
		}
	}
	if !foundSummary {
		t.Fatalf("expected a segment summary in compacted output")
	}
}

func TestCompactNoOpWhenNotEnoughSegments(t *testing.T) {
	h := buildHistory(1, 1)
	c := New()
	out, stats := c.Compact(h, core.CompactOptions{KeepLastSegments: 1})

	if len(out) != len(h) {
		t.Errorf("expected no-op, got %d messages vs original %d", len(out), len(h))
	}
	if stats.Removed != 0 {
		t.Errorf("expected Removed=0, got %d", stats.Removed)
	}
}
