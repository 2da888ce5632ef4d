// Package mcp implements the MCP client multiplexer: discovery of server
// configuration, one connection per configured server across the stdio,
// websocket, SSE and streamable-HTTP transports, and registration of each
// server's tools into the tool registry under the mcp__<server>__<tool>
// name.
package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Transport selects how a server's JSON-RPC traffic is carried.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportWS    Transport = "ws"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// ServerConfig describes one configured MCP server.
type ServerConfig struct {
	Command    string            `json:"command,omitempty"`
	Args       []string          `json:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	URL        string            `json:"url,omitempty"`
	Transport  Transport         `json:"transport,omitempty"`
	Enabled    *bool             `json:"enabled,omitempty"`
	TimeoutMS  int               `json:"timeoutMs,omitempty"`
	RetryCount int               `json:"retryCount,omitempty"`
}

// Timeout returns the configured timeout, defaulting to 30s.
func (c ServerConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// IsEnabled defaults to true when Enabled is unset.
func (c ServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// effectiveTransport infers stdio when a command is set and no transport
// was given explicitly, matching the teacher toolset's connect() dispatch.
func (c ServerConfig) effectiveTransport() Transport {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Command != "" {
		return TransportStdio
	}
	return TransportHTTP
}

// Config is the full name -> server map, as loaded from one config file.
type Config struct {
	Servers map[string]ServerConfig `json:"mcpServers"`
}

// candidatePaths returns the discovery order: an explicit env var, then
// project-local files, then user-level files, then the platform's Claude
// Desktop config location.
func candidatePaths() []string {
	var paths []string
	if p := os.Getenv("PROBE_MCP_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "./.mcp/config.json", "./mcp.config.json")

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "probe", "mcp.json"),
			filepath.Join(home, ".mcp", "mcp.json"),
		)
		paths = append(paths, claudeConfigPath(home))
	}
	return paths
}

// claudeConfigPath returns the per-platform location Claude Desktop stores
// its MCP server configuration, used as a final fallback so servers
// configured for other MCP-aware tools are picked up without duplication.
func claudeConfigPath(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

// Discover walks candidatePaths in order and loads the first file that
// exists. It returns a zero Config (no servers) if none are found, which
// is not an error — MCP is optional.
func Discover() (Config, error) {
	for _, p := range candidatePaths() {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return Load(data)
	}
	return Config{}, nil
}

// Load parses a config file's raw bytes.
func Load(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
