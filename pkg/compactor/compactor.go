// Package compactor implements the history compactor: segmentation of the
// conversation by human turn, and replacement of old tool exchanges with
// one-line summaries to keep context under model limits.
package compactor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/tokencount"
)

// Compactor implements core.Compactor.
type Compactor struct {
	estimator tokencount.Estimator
}

// New builds a Compactor using the approximate token estimator unless opts
// override it.
func New(opts ...Option) *Compactor {
	c := &Compactor{estimator: tokencount.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithEstimator overrides the token estimator used for stats.TokensSaved.
func WithEstimator(e tokencount.Estimator) Option {
	return func(c *Compactor) { c.estimator = e }
}

type segment struct {
	start, end int // [start, end) over h
}

// segments partitions h into runs starting at each human (non-synthetic
// user) turn. Messages before the first human turn (i.e. just the system
// message at index 0) are not part of any segment.
func segments(h core.History) []segment {
	var starts []int
	for i, m := range h {
		if m.Role == core.RoleUser && !m.Synthetic {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}
	segs := make([]segment, 0, len(starts))
	for i, s := range starts {
		end := len(h)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		segs = append(segs, segment{start: s, end: end})
	}
	return segs
}

var toolResultPattern = regexp.MustCompile(`<tool_result tool="([^"]*)">`)

// Compact implements core.Compactor.
func (c *Compactor) Compact(h core.History, opts core.CompactOptions) (core.History, core.CompactStats) {
	keepLast := opts.KeepLastSegments
	if keepLast <= 0 {
		keepLast = 1
	}

	segs := segments(h)
	stats := core.CompactStats{OriginalCount: len(h)}
	if len(segs) <= keepLast {
		// Nothing old enough to compact.
		stats.CompactedCount = len(h)
		return h, stats
	}

	keepFrom := len(segs) - keepLast

	out := core.History{}
	if len(h) > 0 && h[0].Role == core.RoleSystem {
		out = append(out, h[0])
	}

	for i, seg := range segs {
		if i < keepFrom {
			out = append(out, compressSegment(h[seg.start:seg.end])...)
		} else {
			out = append(out, h[seg.start:seg.end]...)
		}
	}

	stats.CompactedCount = len(out)
	stats.Removed = stats.OriginalCount - stats.CompactedCount
	if stats.OriginalCount > 0 {
		stats.ReductionPercent = 100 * float64(stats.Removed) / float64(stats.OriginalCount)
	}
	stats.TokensSaved = h.EstimatedTokens(c.estimator.Count) - out.EstimatedTokens(c.estimator.Count)

	return out, stats
}

// compressSegment keeps the segment's leading human turn verbatim and
// replaces every assistant/tool-result turn after it with a single
// synthetic summary message.
func compressSegment(seg core.History) core.History {
	if len(seg) == 0 {
		return seg
	}

	toolNames := map[string]bool{}
	resultCount := 0
	for _, m := range seg[1:] {
		if m.Role != core.RoleUser || !m.Synthetic {
			continue
		}
		matches := toolResultPattern.FindAllStringSubmatch(m.Text(), -1)
		for _, match := range matches {
			toolNames[match[1]] = true
			resultCount++
		}
	}

	out := core.History{seg[0]}
	if resultCount == 0 {
		return out
	}

	names := make([]string, 0, len(toolNames))
	for n := range toolNames {
		names = append(names, n)
	}
	sort.Strings(names)

	summary := fmt.Sprintf("<segment_summary>used tools: %s; produced %d tool results</segment_summary>",
		strings.Join(names, ", "), resultCount)
	out = append(out, core.NewSyntheticMessage(summary))
	return out
}
