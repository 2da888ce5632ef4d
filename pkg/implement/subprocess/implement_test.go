package subprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeImplementer(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-implement")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestImplementPassesTaskAndReturnsStdout(t *testing.T) {
	bin := writeFakeImplementer(t, `echo "applied: $2"`)
	impl := New(Config{BinaryPath: bin})

	summary, err := impl.Implement(context.Background(), "fix the off-by-one", false)
	require.NoError(t, err)
	assert.Equal(t, "applied: fix the off-by-one", summary)
}

func TestImplementPassesAutoCommitFlag(t *testing.T) {
	bin := writeFakeImplementer(t, `echo "$@"`)
	impl := New(Config{BinaryPath: bin})

	summary, err := impl.Implement(context.Background(), "task", true)
	require.NoError(t, err)
	assert.Contains(t, summary, "--auto-commit")
}

func TestImplementNonZeroExitReturnsStderrAsError(t *testing.T) {
	bin := writeFakeImplementer(t, `echo "patch did not apply" 1>&2; exit 1`)
	impl := New(Config{BinaryPath: bin})

	_, err := impl.Implement(context.Background(), "task", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patch did not apply")
}

func TestImplementMissingBinaryReturnsError(t *testing.T) {
	impl := New(Config{BinaryPath: filepath.Join(t.TempDir(), "does-not-exist")})
	_, err := impl.Implement(context.Background(), "task", false)
	assert.Error(t, err)
}
