// Package subprocess implements core.CodeSearch by shelling out to an
// external `probe` binary and capturing its stdout, stderr, and exit code
// into a core.SubprocessResult.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
)

const defaultMaxOutputBytes = 1 << 20 // 1MiB

// Config configures a Searcher.
type Config struct {
	// BinaryPath is the path to the probe executable. Defaults to "probe",
	// resolved against PATH.
	BinaryPath string
	// Timeout bounds a single invocation. Zero means no extra timeout beyond
	// ctx's own deadline.
	Timeout time.Duration
	// MaxOutputBytes caps how much of stdout/stderr is retained. Zero uses
	// defaultMaxOutputBytes.
	MaxOutputBytes int
}

// Searcher implements core.CodeSearch against an external probe binary.
type Searcher struct {
	binary  string
	timeout time.Duration
	maxOut  int
}

// New builds a Searcher. An empty Config uses the "probe" binary from PATH
// with no extra timeout.
func New(cfg Config) *Searcher {
	binary := cfg.BinaryPath
	if binary == "" {
		binary = "probe"
	}
	maxOut := cfg.MaxOutputBytes
	if maxOut <= 0 {
		maxOut = defaultMaxOutputBytes
	}
	return &Searcher{binary: binary, timeout: cfg.Timeout, maxOut: maxOut}
}

// Search implements core.CodeSearch.
func (s *Searcher) Search(ctx context.Context, p core.SearchParams) (core.SubprocessResult, error) {
	args := []string{"search", p.Query}
	path := p.Path
	if path == "" {
		path = "."
	}
	args = append(args, path)
	if p.Exact {
		args = append(args, "--exact")
	}
	if p.AllowTests {
		args = append(args, "--allow-tests")
	}
	return s.run(ctx, args)
}

// Query implements core.CodeSearch (AST-grep style structural queries).
func (s *Searcher) Query(ctx context.Context, p core.QueryParams) (core.SubprocessResult, error) {
	args := []string{"query", p.Pattern}
	path := p.Path
	if path == "" {
		path = "."
	}
	args = append(args, path)
	if p.Language != "" {
		args = append(args, "--language", p.Language)
	}
	if p.AllowTests {
		args = append(args, "--allow-tests")
	}
	return s.run(ctx, args)
}

// Extract implements core.CodeSearch (pulls a file or line range with
// surrounding context).
func (s *Searcher) Extract(ctx context.Context, p core.ExtractParams) (core.SubprocessResult, error) {
	target := p.FilePath
	if p.Line > 0 {
		if p.EndLine > p.Line {
			target = fmt.Sprintf("%s:%d-%d", target, p.Line, p.EndLine)
		} else {
			target = fmt.Sprintf("%s:%d", target, p.Line)
		}
	}
	args := []string{"extract", target}
	if p.ContextLines > 0 {
		args = append(args, "--context", strconv.Itoa(p.ContextLines))
	}
	if p.Format != "" {
		args = append(args, "--format", p.Format)
	}
	return s.run(ctx, args)
}

func (s *Searcher) run(ctx context.Context, args []string) (core.SubprocessResult, error) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.binary, args...)
	stdout := newLimitedBuffer(s.maxOut)
	stderr := newLimitedBuffer(s.maxOut)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return core.SubprocessResult{}, fmt.Errorf("probe: %w", err)
		}
	}

	return core.SubprocessResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedBuffer caps how much output it retains, discarding bytes beyond
// the limit rather than growing unbounded on a runaway subprocess.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
