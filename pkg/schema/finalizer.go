package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

const maxRepairAttempts = 3

const jsonSpecialistPrompt = "You are a JSON syntax correction specialist. Return only corrected JSON, nothing else — no prose, no code fences."

const mermaidSpecialistPrompt = "You are a Mermaid diagram correction specialist. Return only the corrected Mermaid diagram text, nothing else."

// Finalizer implements core.Finalizer: clean, validate, and — on failure —
// dispatch a bounded number of isolated repair sub-agent calls.
type Finalizer struct {
	llm    core.LLMClient
	strict bool
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithStrictMode toggles implicit additionalProperties:false injection.
// Strict mode is on by default.
func WithStrictMode(strict bool) Option {
	return func(f *Finalizer) { f.strict = strict }
}

// New builds a Finalizer. llm is used only for the self-repair sub-agent
// calls; it may be nil if the caller never passes a schema.
func New(llm core.LLMClient, opts ...Option) *Finalizer {
	f := &Finalizer{llm: llm, strict: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize implements core.Finalizer.
func (f *Finalizer) Finalize(ctx context.Context, session *core.AgentSession, raw string, schemaMap map[string]any) (string, error) {
	cleaned := Clean(raw)

	mermaidChecked, err := f.repairMermaidIfNeeded(ctx, session, cleaned)
	if err == nil {
		cleaned = mermaidChecked
	}

	if schemaMap == nil {
		return cleaned, nil
	}

	candidate := cleaned
	if wrapped, ok := autoWrap(candidate, schemaMap); ok {
		candidate = wrapped
	}

	err = Validate(candidate, schemaMap, f.strict)
	if err == nil {
		return candidate, nil
	}

	if session.DisableJSONValidation {
		return "", core.ErrSchemaValidation("schema validation failed and repair is disabled for this sub-agent", err)
	}

	return f.repairJSON(ctx, session, candidate, schemaMap, err)
}

func (f *Finalizer) repairJSON(ctx context.Context, session *core.AgentSession, candidate string, schemaMap map[string]any, validationErr error) (string, error) {
	current := candidate
	lastErr := validationErr

	for attempt := 1; attempt <= maxRepairAttempts; attempt++ {
		prompt := correctionPrompt(current, schemaMap, lastErr, attempt)

		repaired, genErr := f.dispatchRepair(ctx, session, jsonSpecialistPrompt, prompt)
		if genErr != nil {
			lastErr = genErr
			continue
		}

		candidate := Clean(repaired)
		if wrapped, ok := autoWrap(candidate, schemaMap); ok {
			candidate = wrapped
		}
		if verr := Validate(candidate, schemaMap, f.strict); verr == nil {
			return candidate, nil
		} else {
			current = candidate
			lastErr = verr
		}
	}

	return "", core.ErrSchemaValidation(
		fmt.Sprintf("schema validation failed after %d repair attempts", maxRepairAttempts), lastErr)
}

// repairMermaidIfNeeded looks for fenced ```mermaid blocks and, if any fails
// a basic balance check, dispatches a Mermaid-specific repair pass. It
// never fails the overall Finalize call: on any error it returns the
// original text unchanged.
func (f *Finalizer) repairMermaidIfNeeded(ctx context.Context, session *core.AgentSession, text string) (string, error) {
	if session.DisableMermaidValidation || f.llm == nil {
		return text, nil
	}
	blocks := mermaidBlockPattern.FindAllStringSubmatchIndex(text, -1)
	if len(blocks) == 0 {
		return text, nil
	}

	out := text
	for _, loc := range blocks {
		full := text[loc[0]:loc[1]]
		body := text[loc[2]:loc[3]]
		if isBalanced(body) {
			continue
		}
		prompt := fmt.Sprintf("This Mermaid diagram has a syntax error (unbalanced brackets):\n\n%s\n\nReturn the corrected diagram body only.", body)
		repaired, err := f.dispatchRepair(ctx, session, mermaidSpecialistPrompt, prompt)
		if err != nil {
			continue
		}
		fixed := "```mermaid\n" + strings.TrimSpace(repaired) + "\n```"
		out = strings.Replace(out, full, fixed, 1)
	}
	return out, nil
}

// dispatchRepair runs one completion against a freshly constructed,
// isolated sub-agent: its own session id, recursion guards set so it can
// never itself trigger repair, and no tool access (allowEdit=false is
// implicit — this call never wires a Dispatcher).
func (f *Finalizer) dispatchRepair(ctx context.Context, parent *core.AgentSession, systemPrompt, userPrompt string) (string, error) {
	if f.llm == nil {
		return "", fmt.Errorf("schema: no LLM client configured for self-repair")
	}

	sub := core.NewSessionBuilder().
		WithModel(parent.Provider, parent.Model).
		WithRecursionGuards(true, true).
		WithSystemPromptFragment(systemPrompt).
		Build()

	history := core.History{}.
		Append(core.NewTextMessage(core.RoleSystem, systemPrompt)).
		Append(core.NewTextMessage(core.RoleUser, userPrompt))

	result, err := f.llm.Generate(ctx, history, core.GenerateOptions{Model: sub.Model})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func correctionPrompt(invalid string, schemaMap map[string]any, err error, attempt int) string {
	tone := "Please correct the following JSON so it matches the schema."
	if attempt == maxRepairAttempts {
		tone = "FINAL ATTEMPT: the previous corrections were still invalid. Correct the following JSON so it matches the schema exactly."
	} else if attempt > 1 {
		tone = fmt.Sprintf("Attempt %d: the previous correction was still invalid. Correct the following JSON so it matches the schema.", attempt)
	}

	return fmt.Sprintf("%s\n\nInvalid JSON:\n%s\n\nSchema:\n%s\n\nValidation errors:\n%s",
		tone, invalid, renderSchemaForPrompt(schemaMap), err.Error())
}
