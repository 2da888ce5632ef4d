// Package governor implements the output-size governor: token accounting
// for tool results re-entering the conversation, with truncation and
// on-disk spill for anything over budget.
package governor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/tokencount"
)

const (
	// DefaultMaxOutputTokens is used when the caller-supplied limit is
	// invalid (NaN-equivalent or <= 0).
	DefaultMaxOutputTokens = 20000
	tailTokens             = 1000
	approxCharsPerToken    = 4
)

// Governor implements core.Governor.
type Governor struct {
	estimator tokencount.Estimator
	spillDir  string
}

// Option configures a Governor.
type Option func(*Governor)

// WithEstimator overrides the token estimator; defaults to the
// four-characters-per-token approximation.
func WithEstimator(e tokencount.Estimator) Option {
	return func(g *Governor) { g.estimator = e }
}

// WithSpillDir overrides where oversized payloads are written; defaults to
// ${os.TempDir()}/probe-output.
func WithSpillDir(dir string) Option {
	return func(g *Governor) { g.spillDir = dir }
}

// New builds a Governor.
func New(opts ...Option) *Governor {
	g := &Governor{
		estimator: tokencount.Default(),
		spillDir:  filepath.Join(os.TempDir(), "probe-output"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Govern implements core.Governor.
func (g *Governor) Govern(sessionID, toolName, payload string, maxOutputTokens int) (string, *core.SpillInfo) {
	limit := maxOutputTokens
	if limit <= 0 {
		limit = DefaultMaxOutputTokens
	}

	count := g.estimator.Count(payload)
	if count <= limit {
		return payload, nil
	}

	spill := g.spill(sessionID, toolName, payload)

	var locationLine string
	if spill.Written {
		locationLine = fmt.Sprintf("Full output (%d tokens) written to %s", count, spill.Path)
	} else {
		locationLine = fmt.Sprintf("Full output (%d tokens) could not be spilled to disk: %v", count, spill.Err)
	}

	message := fmt.Sprintf(
		"[output truncated: %d tokens exceeds limit of %d]\n%s\n\n%s",
		count, limit, locationLine, slice(payload, limit),
	)
	return message, spill
}

// slice implements the head / head+omitted-middle+tail truncation rule.
func slice(payload string, limit int) string {
	if limit < 2000 {
		headChars := limit * approxCharsPerToken
		if headChars > len(payload) {
			headChars = len(payload)
		}
		return payload[:headChars]
	}

	headTokens := limit - tailTokens
	headChars := headTokens * approxCharsPerToken
	tailChars := tailTokens * approxCharsPerToken

	if headChars+tailChars >= len(payload) {
		return payload
	}

	head := payload[:headChars]
	tail := payload[len(payload)-tailChars:]
	omittedChars := len(payload) - headChars - tailChars
	omittedTokens := (omittedChars + approxCharsPerToken - 1) / approxCharsPerToken

	return fmt.Sprintf("%s\n\n... %d tokens omitted ...\n\n%s", head, omittedTokens, tail)
}

func (g *Governor) spill(sessionID, toolName, payload string) *core.SpillInfo {
	if err := os.MkdirAll(g.spillDir, 0o755); err != nil {
		return &core.SpillInfo{Written: false, Err: err}
	}
	name := fmt.Sprintf("tool-output-%s-%s.txt", sessionID, uuid.NewString())
	path := filepath.Join(g.spillDir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return &core.SpillInfo{Written: false, Err: err}
	}
	_ = toolName // not part of the spill filename per spec, kept for future per-tool subdirectories
	return &core.SpillInfo{Path: path, Written: true}
}
