package core

import (
	"context"
	"fmt"
	"log/slog"
)

// LoopDeps wires the Agent Loop to its seven supporting subsystems. Only
// LLM, Parser and Tools are required; the rest degrade gracefully to
// no-ops when nil so the loop remains testable in isolation.
type LoopDeps struct {
	LLM       LLMClient
	Parser    Parser
	Tools     Dispatcher
	Compactor Compactor
	Governor  Governor
	Schema    Finalizer
	Stuck     StuckDetector

	// CompactThreshold is the estimated-token count above which the loop
	// proactively compacts before the next iteration.
	CompactThreshold int
	// TokenEstimator estimates tokens for one message's text; defaults to
	// ceil(len/4) if left nil.
	TokenEstimator func(string) int

	Logger *slog.Logger
}

// AgentLoop drives one answer(question) -> string operation at a time, per
// session, to completion.
type AgentLoop struct {
	deps LoopDeps
}

// NewAgentLoop constructs a loop from its dependencies, filling in safe
// defaults for optional ones.
func NewAgentLoop(deps LoopDeps) *AgentLoop {
	if deps.TokenEstimator == nil {
		deps.TokenEstimator = func(s string) int {
			if len(s) == 0 {
				return 0
			}
			return (len(s) + 3) / 4
		}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AgentLoop{deps: deps}
}

// Answer drives the loop to completion for one question.
func (l *AgentLoop) Answer(ctx context.Context, session *AgentSession, question string, images []Part, schema map[string]any) (string, error) {
	if len(session.History) == 0 {
		session.History = session.History.Append(NewTextMessage(RoleSystem, l.buildSystemPrompt(session, schema)))
	}

	userMsg := NewTextMessage(RoleUser, question)
	userMsg.Parts = append(userMsg.Parts, images...)
	session.History = session.History.Append(userMsg)

	for iter := 0; iter < session.MaxIterations; iter++ {
		if session.Cancelled() {
			return "", ErrCancelled()
		}

		result, err := l.deps.LLM.Generate(ctx, session.History, GenerateOptions{Model: session.Model})
		if err != nil {
			return "", ErrLLMTransport(err)
		}
		assistantText := result.Text

		if l.isStuckTurn(session, assistantText) {
			return "", ErrStuckLoopDetected("two consecutive stuck turns")
		}

		session.History = session.History.Append(NewTextMessage(RoleAssistant, assistantText))
		l.deps.Logger.Debug("core: assistant turn appended", "session", session.ID, "iteration", iter, "chars", len(assistantText))

		l.maybeCompact(session)

		if session.Cancelled() {
			return "", ErrCancelled()
		}

		call, ok, parseErr := l.deps.Parser.Parse(assistantText, l.deps.Tools)
		if parseErr != nil {
			session.History = session.History.Append(NewSyntheticMessage(
				fmt.Sprintf("<tool_result tool=\"parser\">Error: %s</tool_result>", parseErr)))
			continue
		}
		if !ok {
			// A stuck-sounding turn without a tool call is not taken as the
			// answer; the next turn decides between answer and stuck loop.
			if l.deps.Stuck != nil && l.deps.Stuck.IsStuck(assistantText) {
				session.History = session.History.Append(NewSyntheticMessage(
					"<tool_result tool=\"parser\">Error: no tool call found; call a tool or attempt_completion</tool_result>"))
				continue
			}
			return l.finalize(ctx, session, assistantText, schema)
		}

		if call.Name == "attempt_completion" {
			resultText, _ := call.Parameters["result"].(string)
			return l.finalize(ctx, session, resultText, schema)
		}

		if !session.AllowedTools.IsEnabled(call.Name) {
			session.History = session.History.Append(NewSyntheticMessage(
				fmt.Sprintf("<tool_result tool=%q>Error: tool %q is not permitted</tool_result>", call.Name, call.Name)))
			continue
		}

		toolResult, dispatchErr := l.deps.Tools.Dispatch(ctx, session, *call)
		if dispatchErr != nil && !toolResult.Success {
			toolResult = ToolResult{Success: false, FailureKind: FailureExecution, Message: dispatchErr.Error()}
		}

		payload := toolResult.Payload
		if !toolResult.Success {
			payload = "Error: " + toolResult.Message
		}

		governed := payload
		if l.deps.Governor != nil {
			governed, _ = l.deps.Governor.Govern(session.ID, call.Name, payload, session.MaxOutputTokens)
		}

		// Images discovered by THIS tool result attach to the NEXT
		// synthetic turn, never this one.
		toAttachNow := session.DrainImages()
		session.QueueImages(toolResult.DiscoveredImages)

		msg := NewSyntheticMessage(fmt.Sprintf("<tool_result tool=%q>%s</tool_result>", call.Name, governed))
		msg = msg.WithImages(toAttachNow)
		session.History = session.History.Append(msg)
	}

	return "", ErrIterationBudgetExceeded(session.MaxIterations)
}

func (l *AgentLoop) isStuckTurn(session *AgentSession, assistantText string) bool {
	if l.deps.Stuck == nil {
		return false
	}
	recent := session.History.LastAssistantTexts(1)
	if len(recent) == 0 {
		return false
	}
	prevStuck := l.deps.Stuck.IsStuck(recent[0])
	curStuck := l.deps.Stuck.IsStuck(assistantText)
	exactRepeat := recent[0] == assistantText
	return (prevStuck && curStuck) || exactRepeat
}

func (l *AgentLoop) maybeCompact(session *AgentSession) {
	if l.deps.Compactor == nil || l.deps.CompactThreshold <= 0 {
		return
	}
	est := session.History.EstimatedTokens(l.deps.TokenEstimator)
	if est <= l.deps.CompactThreshold {
		return
	}
	compacted, stats := l.deps.Compactor.Compact(session.History, CompactOptions{KeepLastSegments: 1, MinSegmentsToKeep: 1})
	session.History = compacted
	l.deps.Logger.Info("core: history compacted", "session", session.ID, "removed", stats.Removed, "tokens_saved", stats.TokensSaved)
}

func (l *AgentLoop) finalize(ctx context.Context, session *AgentSession, raw string, schema map[string]any) (string, error) {
	if l.deps.Schema == nil {
		return raw, nil
	}
	return l.deps.Schema.Finalize(ctx, session, raw, schema)
}
