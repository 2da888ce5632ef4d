// Package config provides configuration loading for the agent CLI: a root
// Config struct unmarshalled from YAML, with SetDefaults/Validate on the
// agent, tools and logger sections, plus environment-variable overrides
// read at startup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/probelabs/probe-agent/pkg/mcp"
	"github.com/probelabs/probe-agent/pkg/observability"
)

// Config is the root configuration structure for the agent CLI.
type Config struct {
	Agent         AgentConfig          `yaml:"agent,omitempty"`
	Tools         ToolsConfig          `yaml:"tools,omitempty"`
	MCP           mcp.Config           `yaml:"mcp,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
	Logger        LoggerConfig         `yaml:"logger,omitempty"`
}

// SetDefaults applies defaults to the agent, tools and logger sections; the
// mcp and observability sections are left as loaded.
func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.Tools.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate checks the agent, tools and logger sections; the mcp and
// observability sections are not checked here.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

// AgentConfig configures the Agent Loop's session defaults.
type AgentConfig struct {
	// MaxIterations bounds how many LLM round-trips one Answer call may take.
	MaxIterations int `yaml:"max_iterations,omitempty"`
	// MaxOutputTokens bounds how much of a single tool result re-enters the
	// conversation before the governor spills the rest to disk.
	MaxOutputTokens int `yaml:"max_output_tokens,omitempty"`
	// Persona is added to the system prompt right after the built-in
	// persona preamble.
	Persona string `yaml:"persona,omitempty"`
	// CompactThreshold is the estimated-token count above which the loop
	// proactively compacts history before the next iteration.
	CompactThreshold int `yaml:"compact_threshold,omitempty"`
	// NonInteractive disables any prompts that would otherwise block on
	// stdin (e.g. tool-approval confirmations).
	NonInteractive bool `yaml:"non_interactive,omitempty"`
}

// SetDefaults applies default values.
func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 30
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 20000
	}
	if c.CompactThreshold <= 0 {
		c.CompactThreshold = 100000
	}
}

// Validate checks the agent configuration.
func (c *AgentConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive, got %d", c.MaxOutputTokens)
	}
	return nil
}

// ToolsConfig configures the built-in tool set.
type ToolsConfig struct {
	// AllowEdit enables the bash and implement tools, which can mutate the
	// repository. Read-only operation (search/query/extract/list/read) is
	// always available regardless of this flag.
	AllowEdit bool `yaml:"allow_edit,omitempty"`
	// Allowed, when non-empty, is the exclusive set of tool names available
	// to the model for this session.
	Allowed []string `yaml:"allowed,omitempty"`
	// Disabled removes tool names from the default set.
	Disabled []string `yaml:"disabled,omitempty"`
	// CustomAllow/CustomDeny extend the bash permission checker's default
	// policy, as colon-separated patterns over the parsed command head and
	// its arguments (e.g. "git:push", "gh:*:list").
	CustomAllow []string `yaml:"custom_allow,omitempty"`
	CustomDeny  []string `yaml:"custom_deny,omitempty"`
}

// SetDefaults applies default values.
func (c *ToolsConfig) SetDefaults() {}

// Validate checks the tools configuration.
func (c *ToolsConfig) Validate() error {
	for _, name := range c.Allowed {
		for _, disabled := range c.Disabled {
			if name == disabled {
				return fmt.Errorf("tool %q is both allowed and disabled", name)
			}
		}
	}
	return nil
}

// Load reads and parses a YAML config file at path. A missing file is not
// an error: Load returns a zero Config with defaults applied by the caller.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
