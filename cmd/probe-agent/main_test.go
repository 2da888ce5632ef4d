package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/tools"
)

func TestBuildAllowedToolSetDefaultsToAllowAll(t *testing.T) {
	set, err := buildAllowedToolSet("", "bash")
	require.NoError(t, err)
	assert.Equal(t, core.ModeAll, set.Mode)
	assert.Equal(t, []string{"bash"}, set.Exclude)
}

func TestBuildAllowedToolSetWhitelistsWhenIncludeGiven(t *testing.T) {
	set, err := buildAllowedToolSet("search, query , extract", "")
	require.NoError(t, err)
	assert.Equal(t, core.ModeWhitelist, set.Mode)
	assert.Equal(t, []string{"search", "query", "extract"}, set.Include)
}

func TestSplitCSVIgnoresBlankEntries(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a ,, b ,"))
}

func TestSplitCSVEmptyStringReturnsNil(t *testing.T) {
	assert.Nil(t, splitCSV("  "))
}

func TestFirstPositiveSkipsNonPositiveValues(t *testing.T) {
	assert.Equal(t, 5, firstPositive(0, -1, 5, 9))
	assert.Zero(t, firstPositive(0, 0))
}

func TestFirstNonEmptySkipsEmptyStrings(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}

func TestParsePositiveIntParsesDigits(t *testing.T) {
	n, err := parsePositiveInt("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestParsePositiveIntRejectsZero(t *testing.T) {
	_, err := parsePositiveInt("0")
	assert.Error(t, err)
}

func TestParsePositiveIntRejectsNonDigits(t *testing.T) {
	_, err := parsePositiveInt("12x")
	assert.Error(t, err)
}

func TestDiscoverMCPConfigReadsExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {}}`), 0o644))

	_, err := discoverMCPConfig(path)
	assert.NoError(t, err)
}

func TestDiscoverMCPConfigErrorsOnMissingExplicitPath(t *testing.T) {
	_, err := discoverMCPConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPrintToolListRejectsUnknownSource(t *testing.T) {
	registry := tools.NewBuilder().Build()
	err := printToolList(registry, "gemini")
	assert.Error(t, err)
}

func TestPrintToolListAcceptsKnownSources(t *testing.T) {
	registry := tools.NewBuilder().Build()
	for _, source := range []string{"", "all", "native", "mcp"} {
		assert.NoError(t, printToolList(registry, source))
	}
}
