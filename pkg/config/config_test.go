package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Agent.MaxIterations)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe-agent.yaml")
	data := []byte(`
agent:
  max_iterations: 10
  persona: "a terse reviewer"
tools:
  allow_edit: true
  disabled: ["bash"]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, "a terse reviewer", cfg.Agent.Persona)
	assert.True(t, cfg.Tools.AllowEdit)
	assert.Equal(t, []string{"bash"}, cfg.Tools.Disabled)
}

func TestAgentConfigSetDefaults(t *testing.T) {
	var c AgentConfig
	c.SetDefaults()
	assert.Equal(t, 30, c.MaxIterations)
	assert.Equal(t, 20000, c.MaxOutputTokens)
	assert.Equal(t, 100000, c.CompactThreshold)
}

func TestAgentConfigValidateRejectsNonPositiveIterations(t *testing.T) {
	c := AgentConfig{MaxIterations: 0, MaxOutputTokens: 100}
	assert.Error(t, c.Validate())
}

func TestToolsConfigValidateRejectsConflictingNames(t *testing.T) {
	c := ToolsConfig{Allowed: []string{"search"}, Disabled: []string{"search"}}
	assert.Error(t, c.Validate())
}
