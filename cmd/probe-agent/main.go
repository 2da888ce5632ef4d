// Command probe-agent runs the agentic tool-loop core against a local
// repository: it answers one question, using search/query/extract/bash/
// fs tools and any configured MCP servers to explore the code before
// producing a final answer.
//
// Usage:
//
//	probe-agent "where is the retry logic for HTTP requests?"
//	probe-agent --path ./myrepo --allow-edit "fix the off-by-one in parser.go"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/probelabs/probe-agent/pkg/compactor"
	"github.com/probelabs/probe-agent/pkg/config"
	"github.com/probelabs/probe-agent/pkg/core"
	"github.com/probelabs/probe-agent/pkg/governor"
	implementsubprocess "github.com/probelabs/probe-agent/pkg/implement/subprocess"
	"github.com/probelabs/probe-agent/pkg/llm/anthropic"
	"github.com/probelabs/probe-agent/pkg/logger"
	"github.com/probelabs/probe-agent/pkg/mcp"
	"github.com/probelabs/probe-agent/pkg/observability"
	"github.com/probelabs/probe-agent/pkg/parser"
	"github.com/probelabs/probe-agent/pkg/permission"
	"github.com/probelabs/probe-agent/pkg/schema"
	"github.com/probelabs/probe-agent/pkg/search/subprocess"
	"github.com/probelabs/probe-agent/pkg/stuckloop"
	"github.com/probelabs/probe-agent/pkg/tools"
)

// CLI defines the command-line interface.
type CLI struct {
	Question string `arg:"" optional:"" help:"the question to answer"`

	Path          string `help:"repository path to operate in." default:"." type:"path"`
	Prompt        string `help:"persona/system-prompt fragment override."`
	Config        string `short:"c" help:"path to a probe-agent.yaml config file." type:"path"`
	Provider      string `help:"LLM provider." default:"anthropic"`
	Model         string `help:"model name, defaults to the provider's default."`
	AllowEdit     bool   `name:"allow-edit" help:"enable the bash and implement tools."`
	AllowedTools  string `name:"allowed-tools" help:"comma-separated whitelist of tool names (supports glob, e.g. mcp__*)."`
	DisableTools  string `name:"disable-tools" help:"comma-separated blacklist of tool names."`
	MaxIterations int    `name:"max-iterations" help:"override the max LLM round-trips for this run."`
	Verbose       bool   `short:"v" help:"enable debug logging."`
	MCPConfig     string `name:"mcp" help:"path to an MCP server config file; overrides the default discovery order."`
	ImplementBin  string `name:"implement-bin" help:"path to the external editing binary used by --allow-edit." default:"probe-implement"`
	ListTools     bool   `name:"list-tools" help:"print registered tool names and descriptions, then exit, instead of answering a question."`
	ToolsSource   string `name:"tools-source" help:"with --list-tools, filter to one source: native or mcp."`

	LogLevel  string `help:"log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"log file path (empty = stderr)."`
	LogFormat string `help:"log format (simple, verbose)." default:"simple"`
}

func main() {
	_ = config.LoadEnvFiles()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("probe-agent"),
		kong.Description("Answers questions about a codebase using an agentic search-and-read tool loop."),
		kong.UsageOnError(),
	)

	if cli.Verbose {
		cli.LogLevel = "debug"
	}
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe-agent: %v\n", err)
		os.Exit(1)
	}
	output := os.Stderr
	if cli.LogFile != "" {
		f, cleanupErr := os.OpenFile(cli.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if cleanupErr != nil {
			fmt.Fprintf(os.Stderr, "probe-agent: opening log file: %v\n", cleanupErr)
			os.Exit(1)
		}
		defer f.Close()
		output = f
	}
	logger.Init(level, output, cli.LogFormat)
	log := logger.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("probe-agent: shutting down")
		cancel()
	}()

	if err := run(ctx, cli, log); err != nil {
		fmt.Fprintf(os.Stderr, "probe-agent: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cli CLI, log *slog.Logger) error {
	if !cli.ListTools && strings.TrimSpace(cli.Question) == "" {
		return fmt.Errorf("a question is required")
	}

	cfg := config.Config{}
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if os.Getenv("PROBE_MAX_OUTPUT_TOKENS") != "" {
		if n, err := parsePositiveInt(os.Getenv("PROBE_MAX_OUTPUT_TOKENS")); err == nil {
			cfg.Agent.MaxOutputTokens = n
		}
	}
	if os.Getenv("MAX_TOOL_ITERATIONS") != "" {
		if n, err := parsePositiveInt(os.Getenv("MAX_TOOL_ITERATIONS")); err == nil {
			cfg.Agent.MaxIterations = n
		}
	}
	if os.Getenv("PROBE_NON_INTERACTIVE") == "1" {
		cfg.Agent.NonInteractive = true
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	llmClient, err := anthropic.New(anthropic.Config{APIKey: apiKey, DefaultModel: cli.Model})
	if err != nil {
		return err
	}

	permChecker := permission.New(
		permission.WithCustomAllow(cfg.Tools.CustomAllow...),
		permission.WithCustomDeny(cfg.Tools.CustomDeny...),
		permission.WithRecorder(permission.NewSlogRecorder(log)),
	)

	searcher := subprocess.New(subprocess.Config{})

	metrics, err := buildMetrics(ctx, cfg)
	if err != nil {
		return err
	}

	registry := tools.NewBuilder().WithMetrics(metrics).Build()
	builtinDeps := tools.BuiltinDeps{
		Workdir:    cli.Path,
		CodeSearch: searcher,
	}
	if cli.AllowEdit || cfg.Tools.AllowEdit {
		builtinDeps.Permission = permChecker
		builtinDeps.Implement = implementsubprocess.New(implementsubprocess.Config{
			BinaryPath: cli.ImplementBin,
			Workdir:    cli.Path,
		})
	}
	if err := tools.RegisterBuiltins(registry, builtinDeps); err != nil {
		return err
	}

	mux := mcp.New(log)
	mcpCfg, err := discoverMCPConfig(cli.MCPConfig)
	if err != nil {
		return err
	}
	if err := mux.Initialize(ctx, mcpCfg); err != nil {
		return err
	}
	defer mux.Disconnect()
	for _, desc := range mux.ToolDescriptors() {
		if err := registry.Register(desc); err != nil {
			return err
		}
	}

	if cli.ListTools {
		return printToolList(registry, cli.ToolsSource)
	}

	allowedCSV, disabledCSV := cli.AllowedTools, cli.DisableTools
	if allowedCSV == "" {
		allowedCSV = strings.Join(cfg.Tools.Allowed, ",")
	}
	if disabledCSV == "" {
		disabledCSV = strings.Join(cfg.Tools.Disabled, ",")
	}
	allowed, err := buildAllowedToolSet(allowedCSV, disabledCSV)
	if err != nil {
		return err
	}

	session := core.NewSessionBuilder().
		WithWorkdir(cli.Path).
		WithAllowedTools(allowed).
		WithModel(cli.Provider, cli.Model).
		WithMaxIterations(firstPositive(cli.MaxIterations, cfg.Agent.MaxIterations)).
		WithMaxOutputTokens(cfg.Agent.MaxOutputTokens).
		WithSystemPromptFragment(firstNonEmpty(cli.Prompt, cfg.Agent.Persona)).
		Build()

	sessionLog := logger.WithSession(log, session.ID)

	loop := core.NewAgentLoop(core.LoopDeps{
		LLM:              llmClient,
		Parser:           parser.New(),
		Tools:            registry,
		Compactor:        compactor.New(),
		Governor:         governor.New(),
		Schema:           schema.New(llmClient),
		Stuck:            stuckloop.New(),
		CompactThreshold: cfg.Agent.CompactThreshold,
		Logger:           sessionLog,
	})

	answer, err := loop.Answer(ctx, session, cli.Question, nil, nil)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

// printToolList is the --list-tools introspection path: a machine-readable
// listing independent of RenderToolsSection, which renders the system
// prompt the model sees rather than something a human or script consumes.
func printToolList(registry *tools.Registry, source string) error {
	var kind core.ToolSourceKind
	switch source {
	case "", "all":
		kind = ""
	case "native":
		kind = core.ToolSourceNative
	case "mcp":
		kind = core.ToolSourceMCP
	default:
		return fmt.Errorf("unknown --tools-source %q (want native or mcp)", source)
	}

	for _, t := range registry.DescribeTools(kind) {
		fmt.Printf("%s\t%s\t%s\n", t.Name, t.Source, t.Description)
	}
	return nil
}

func discoverMCPConfig(explicitPath string) (mcp.Config, error) {
	if explicitPath != "" {
		data, err := os.ReadFile(explicitPath)
		if err != nil {
			return mcp.Config{}, fmt.Errorf("mcp config: %w", err)
		}
		return mcp.Load(data)
	}
	if envPath := os.Getenv("MCP_CONFIG_PATH"); envPath != "" {
		data, err := os.ReadFile(envPath)
		if err != nil {
			return mcp.Config{}, fmt.Errorf("mcp config: %w", err)
		}
		return mcp.Load(data)
	}
	return mcp.Discover()
}

func buildMetrics(ctx context.Context, cfg config.Config) (*observability.Metrics, error) {
	if !cfg.Observability.Metrics.Enabled {
		return nil, nil
	}
	mgr, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return nil, err
	}
	return mgr.Metrics(), nil
}

func buildAllowedToolSet(allowedCSV, disabledCSV string) (core.AllowedToolSet, error) {
	allowed := splitCSV(allowedCSV)
	disabled := splitCSV(disabledCSV)
	if len(allowed) > 0 {
		return core.AllowedToolSet{Mode: core.ModeWhitelist, Include: allowed, Exclude: disabled}, nil
	}
	return core.AllowedToolSet{Mode: core.ModeAll, Exclude: disabled}, nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid integer %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", s)
	}
	return n, nil
}
