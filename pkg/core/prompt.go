package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

var personaPreambles = map[Persona]string{
	PersonaCodeExplorer: "You are a meticulous code-exploration assistant. Investigate the repository using the available tools before answering.",
	PersonaEngineer:     "You are a senior software engineer assistant. Favor correct, minimal, well-tested changes.",
	PersonaCodeReview:   "You are a rigorous code-review assistant. Identify defects, risks, and missed edge cases.",
	PersonaSupport:      "You are a support assistant helping a user understand an unfamiliar codebase.",
	PersonaArchitect:    "You are a systems architecture assistant reasoning about structure and tradeoffs.",
}

// buildSystemPrompt composes the persona preamble, enabled-tool XML
// descriptions, schema instructions, and a working-directory notice.
func (l *AgentLoop) buildSystemPrompt(session *AgentSession, schema map[string]any) string {
	var b strings.Builder

	preamble, ok := personaPreambles[session.Persona]
	if !ok {
		preamble = personaPreambles[PersonaCodeExplorer]
	}
	b.WriteString(preamble)
	b.WriteString("\n\n")

	if session.SystemPromptFragment != "" {
		b.WriteString(session.SystemPromptFragment)
		b.WriteString("\n\n")
	}

	if l.deps.Tools != nil {
		b.WriteString(l.deps.Tools.RenderToolsSection())
		b.WriteString("\n")
	}

	if schema != nil {
		b.WriteString("## Schema\n\n")
		b.WriteString("Return only the JSON object matching this schema via `attempt_completion`:\n\n")
		b.WriteString(renderSchemaBlock(schema))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\nWorking directory: %s\n", session.Workdir))

	return b.String()
}

func renderSchemaBlock(schema map[string]any) string {
	// The schema package owns pretty-printing for validation errors; the
	// prompt only needs a readable rendering.
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Sprintf("```json\n%v\n```", schema)
	}
	return "```json\n" + string(raw) + "\n```"
}
