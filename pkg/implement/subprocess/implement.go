// Package subprocess implements core.Implementer by shelling out to an
// external editing binary, mirroring search/subprocess's CodeSearch
// adapter: the core never writes to the repository itself, it only asks a
// collaborator process to and reports back what happened.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/probelabs/probe-agent/pkg/core"
)

const defaultMaxOutputBytes = 1 << 20 // 1MiB

// Config configures an Implementer.
type Config struct {
	// BinaryPath is the path to the editing executable. Defaults to
	// "probe-implement", resolved against PATH.
	BinaryPath string
	// Workdir is the repository root the binary is invoked in.
	Workdir string
	// Timeout bounds a single invocation. Zero means no extra timeout
	// beyond ctx's own deadline.
	Timeout time.Duration
}

// Implementer invokes an external binary to carry out one editing task and
// implements core.Implementer.
type Implementer struct {
	binary  string
	workdir string
	timeout time.Duration
}

// New builds an Implementer. An empty Config uses the "probe-implement"
// binary from PATH against the current directory.
func New(cfg Config) *Implementer {
	binary := cfg.BinaryPath
	if binary == "" {
		binary = "probe-implement"
	}
	workdir := cfg.Workdir
	if workdir == "" {
		workdir = "."
	}
	return &Implementer{binary: binary, workdir: workdir, timeout: cfg.Timeout}
}

// Implement runs the external binary against task, optionally asking it to
// commit its own changes, and returns its stdout as the summary the model
// sees. A non-zero exit is reported as an error, not a result, since unlike
// a search miss there is no well-formed "nothing found" outcome for an
// edit that failed to apply.
func (i *Implementer) Implement(ctx context.Context, task string, autoCommits bool) (string, error) {
	runCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := []string{"--task", task}
	if autoCommits {
		args = append(args, "--auto-commit")
	}

	cmd := exec.CommandContext(runCtx, i.binary, args...)
	cmd.Dir = i.workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("implement: %s", msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
