package subprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelabs/probe-agent/pkg/core"
)

// writeFakeProbe writes an executable shell script standing in for the real
// probe binary, echoing its arguments so tests can assert on exact flag
// construction without requiring probe to be installed.
func writeFakeProbe(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-probe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestSearchBuildsExpectedArgs(t *testing.T) {
	bin := writeFakeProbe(t, `echo "$@"`)
	s := New(Config{BinaryPath: bin})

	res, err := s.Search(context.Background(), core.SearchParams{Query: "foo bar", Path: "./src", Exact: true, AllowTests: true})
	require.NoError(t, err)
	assert.Equal(t, "search foo bar ./src --exact --allow-tests\n", res.Stdout)
	assert.Zero(t, res.ExitCode)
}

func TestSearchDefaultsPathToCurrentDir(t *testing.T) {
	bin := writeFakeProbe(t, `echo "$@"`)
	s := New(Config{BinaryPath: bin})

	res, err := s.Search(context.Background(), core.SearchParams{Query: "foo"})
	require.NoError(t, err)
	assert.Equal(t, "search foo .\n", res.Stdout)
}

func TestExtractBuildsLineRange(t *testing.T) {
	bin := writeFakeProbe(t, `echo "$@"`)
	s := New(Config{BinaryPath: bin})

	res, err := s.Extract(context.Background(), core.ExtractParams{FilePath: "main.go", Line: 10, EndLine: 20, ContextLines: 3, Format: "markdown"})
	require.NoError(t, err)
	assert.Equal(t, "extract main.go:10-20 --context 3 --format markdown\n", res.Stdout)
}

func TestExtractSingleLineHasNoRange(t *testing.T) {
	bin := writeFakeProbe(t, `echo "$@"`)
	s := New(Config{BinaryPath: bin})

	res, err := s.Extract(context.Background(), core.ExtractParams{FilePath: "main.go", Line: 10})
	require.NoError(t, err)
	assert.Equal(t, "extract main.go:10\n", res.Stdout)
}

func TestRunCapturesNonZeroExitCodeAsResultNotError(t *testing.T) {
	bin := writeFakeProbe(t, `echo "boom" 1>&2; exit 3`)
	s := New(Config{BinaryPath: bin})

	res, err := s.Search(context.Background(), core.SearchParams{Query: "x"})
	require.NoError(t, err, "a nonzero exit is a result, not a Go error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestRunReturnsErrorWhenBinaryMissing(t *testing.T) {
	s := New(Config{BinaryPath: filepath.Join(t.TempDir(), "does-not-exist")})
	_, err := s.Search(context.Background(), core.SearchParams{Query: "x"})
	assert.Error(t, err)
}

func TestLimitedBufferTruncatesAtMax(t *testing.T) {
	b := newLimitedBuffer(5)
	_, _ = b.Write([]byte("hello world"))
	assert.Equal(t, "hello", b.String())
}
