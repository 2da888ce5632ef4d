package core

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Persona names a fixed system-prompt preamble variant.
type Persona string

const (
	PersonaCodeExplorer Persona = "code-explorer"
	PersonaEngineer     Persona = "engineer"
	PersonaCodeReview   Persona = "code-review"
	PersonaSupport      Persona = "support"
	PersonaArchitect    Persona = "architect"
)

const (
	DefaultMaxIterations  = 30
	DefaultMaxOutputTokens = 20000
)

// AgentSession holds everything the Agent Loop needs across one
// answer(question) call, and is preserved across calls within a process.
type AgentSession struct {
	ID      string
	Workdir string

	AllowedTools AllowedToolSet

	Model    string
	Provider string

	MaxIterations   int
	MaxOutputTokens int

	SystemPromptFragment string
	Persona               Persona

	History History

	pendingImages []DiscoveredImage

	// DisableJSONValidation and DisableMermaidValidation are recursion
	// guards set on sub-agents spawned by the self-repair loop so
	// that a repair sub-agent cannot itself trigger repair.
	DisableJSONValidation    bool
	DisableMermaidValidation bool

	// cancelled is checked at every suspension point in the Agent Loop
	// (before each LLM call and before each tool dispatch), which can race
	// with a signal handler calling Cancel from another goroutine.
	cancelled atomic.Bool
}

// SessionBuilder constructs an AgentSession via fluent With... calls,
// matching this module's generic-registry-and-builder idiom.
type SessionBuilder struct {
	s AgentSession
}

// NewSessionBuilder starts a builder with spec-mandated defaults.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{s: AgentSession{
		ID:              uuid.NewString(),
		Workdir:         ".",
		AllowedTools:    NewAllowAll(),
		MaxIterations:   DefaultMaxIterations,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Persona:         PersonaCodeExplorer,
	}}
}

func (b *SessionBuilder) WithWorkdir(dir string) *SessionBuilder {
	b.s.Workdir = dir
	return b
}

func (b *SessionBuilder) WithAllowedTools(set AllowedToolSet) *SessionBuilder {
	b.s.AllowedTools = set
	return b
}

func (b *SessionBuilder) WithModel(provider, model string) *SessionBuilder {
	b.s.Provider = provider
	b.s.Model = model
	return b
}

func (b *SessionBuilder) WithMaxIterations(n int) *SessionBuilder {
	if n > 0 {
		b.s.MaxIterations = n
	}
	return b
}

func (b *SessionBuilder) WithMaxOutputTokens(n int) *SessionBuilder {
	if n > 0 {
		b.s.MaxOutputTokens = n
	}
	return b
}

func (b *SessionBuilder) WithPersona(p Persona) *SessionBuilder {
	b.s.Persona = p
	return b
}

func (b *SessionBuilder) WithSystemPromptFragment(fragment string) *SessionBuilder {
	b.s.SystemPromptFragment = fragment
	return b
}

// WithRecursionGuards marks the session as a self-repair sub-agent: it can
// never itself trigger another repair pass.
func (b *SessionBuilder) WithRecursionGuards(disableJSON, disableMermaid bool) *SessionBuilder {
	b.s.DisableJSONValidation = disableJSON
	b.s.DisableMermaidValidation = disableMermaid
	return b
}

// Build returns the constructed session.
func (b *SessionBuilder) Build() *AgentSession {
	s := b.s
	return &s
}

// QueueImages stages newly discovered images to be attached to the next
// synthetic user turn, never earlier and never later.
func (s *AgentSession) QueueImages(imgs []DiscoveredImage) {
	s.pendingImages = append(s.pendingImages, imgs...)
}

// DrainImages returns and clears the pending image queue.
func (s *AgentSession) DrainImages() []DiscoveredImage {
	imgs := s.pendingImages
	s.pendingImages = nil
	return imgs
}

// Cancel marks the session cancelled; checked at every suspension point.
func (s *AgentSession) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (s *AgentSession) Cancelled() bool { return s.cancelled.Load() }
