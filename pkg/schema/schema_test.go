package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/probelabs/probe-agent/pkg/core"
)

func TestCleanStripsResultWrapper(t *testing.T) {
	got := Clean(`<result>{"answer": 42}</result>`)
	if got != `{"answer": 42}` {
		t.Errorf("Clean() = %q", got)
	}
}

func TestCleanExtractsFencedJSONBlock(t *testing.T) {
	got := Clean("```json\n{\"answer\": 42}\n```")
	if got != `{"answer": 42}` {
		t.Errorf("Clean() = %q", got)
	}
}

func TestCleanLeavesProseWithEmbeddedFenceAlone(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"answer\": 42}\n```\nLet me know if you need more."
	got := Clean(raw)
	if got == `{"answer": 42}` {
		t.Errorf("Clean() should not harvest a fence surrounded by prose, got %q", got)
	}
}

func TestCleanNormalizesSingleQuotedJSON(t *testing.T) {
	got := Clean("```json\n{'answer': 42}\n```")
	if got != `{"answer": 42}` {
		t.Errorf("Clean() = %q", got)
	}
}

func TestApplyStrictInjectsAdditionalPropertiesFalse(t *testing.T) {
	sch := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	strict := applyStrict(sch)
	if strict["additionalProperties"] != false {
		t.Errorf("expected additionalProperties:false injected at top level")
	}
}

func TestApplyStrictRecursesThroughNestedObjects(t *testing.T) {
	sch := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inner": map[string]any{
				"type":       "object",
				"properties": map[string]any{"x": map[string]any{"type": "string"}},
			},
		},
	}
	strict := applyStrict(sch)
	inner := strict["properties"].(map[string]any)["inner"].(map[string]any)
	if inner["additionalProperties"] != false {
		t.Errorf("expected nested object to also get additionalProperties:false")
	}
}

func TestApplyStrictDoesNotOverrideExplicitSetting(t *testing.T) {
	sch := map[string]any{"type": "object", "additionalProperties": true, "properties": map[string]any{}}
	strict := applyStrict(sch)
	if strict["additionalProperties"] != true {
		t.Errorf("expected explicit additionalProperties to be preserved")
	}
}

func TestValidateAcceptsMatchingPayload(t *testing.T) {
	sch := map[string]any{
		"type":       "object",
		"required":   []any{"answer"},
		"properties": map[string]any{"answer": map[string]any{"type": "number"}},
	}
	if err := Validate(`{"answer": 42}`, sch, true); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsExtraFieldInStrictMode(t *testing.T) {
	sch := map[string]any{
		"type":       "object",
		"properties": map[string]any{"answer": map[string]any{"type": "number"}},
	}
	err := Validate(`{"answer": 42, "extra": true}`, sch, true)
	if err == nil {
		t.Fatalf("expected strict-mode validation to reject the extra field")
	}
}

func TestValidateReportsActualValueForTypeMismatch(t *testing.T) {
	sch := map[string]any{
		"type":       "object",
		"properties": map[string]any{"answer": map[string]any{"type": "number"}},
		"required":   []any{"answer"},
	}
	err := Validate(`{"answer": "not a number"}`, sch, false)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if len(ve.Failures) == 0 {
		t.Fatal("expected at least one failure")
	}
	found := false
	for _, f := range ve.Failures {
		if f.ActualValue == `"not a number"` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a failure with ActualValue %q, got %+v", `"not a number"`, ve.Failures)
	}
}

func TestValidateReturnsParseErrorWithSnippet(t *testing.T) {
	sch := map[string]any{"type": "object"}
	err := Validate(`{"answer": `, sch, true)
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.Snippet == "" {
		t.Errorf("expected a non-empty snippet")
	}
}

func TestAutoWrapWrapsPlainTextForSingleFieldSchema(t *testing.T) {
	sch := map[string]any{
		"type":       "object",
		"properties": map[string]any{"summary": map[string]any{"type": "string"}},
	}
	wrapped, ok := autoWrap("just some plain text", sch)
	if !ok {
		t.Fatalf("expected autoWrap to apply")
	}
	if !strings.Contains(wrapped, `"summary"`) || !strings.Contains(wrapped, "just some plain text") {
		t.Errorf("wrapped = %q", wrapped)
	}
}

func TestAutoWrapDoesNothingForValidJSON(t *testing.T) {
	sch := map[string]any{
		"type":       "object",
		"properties": map[string]any{"summary": map[string]any{"type": "string"}},
	}
	_, ok := autoWrap(`{"summary": "already json"}`, sch)
	if ok {
		t.Errorf("expected autoWrap not to apply to already-valid JSON")
	}
}

type fakeLLM struct {
	responses []string
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, h core.History, opts core.GenerateOptions) (core.GenerateResult, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return core.GenerateResult{Text: f.responses[i]}, nil
}

func TestFinalizeReturnsCleanedTextWithoutSchema(t *testing.T) {
	f := New(nil)
	session := core.NewSessionBuilder().Build()
	out, err := f.Finalize(context.Background(), session, "<result>plain text</result>", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plain text" {
		t.Errorf("out = %q", out)
	}
}

func TestFinalizeValidatesWithoutRepairWhenAlreadyValid(t *testing.T) {
	llm := &fakeLLM{}
	f := New(llm)
	sch := map[string]any{"type": "object", "properties": map[string]any{"x": map[string]any{"type": "string"}}}
	session := core.NewSessionBuilder().Build()
	out, err := f.Finalize(context.Background(), session, `{"x": "ok"}`, sch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"x": "ok"}` {
		t.Errorf("out = %q", out)
	}
	if llm.calls != 0 {
		t.Errorf("expected no repair calls for already-valid JSON, got %d", llm.calls)
	}
}

// twoFieldSchema is not a simple-wrapper schema (more than one property),
// so the autowrap fallback never short-circuits these repair-path tests.
func twoFieldSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "string"},
			"y": map[string]any{"type": "string"},
		},
	}
}

func TestFinalizeRepairsInvalidJSONViaSubAgent(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"x": "fixed", "y": "fixed"}`}}
	f := New(llm)
	session := core.NewSessionBuilder().Build()

	out, err := f.Finalize(context.Background(), session, `{x: "broken"`, twoFieldSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"x": "fixed", "y": "fixed"}` {
		t.Errorf("out = %q", out)
	}
	if llm.calls != 1 {
		t.Errorf("expected exactly 1 repair call, got %d", llm.calls)
	}
}

func TestFinalizeGivesUpAfterMaxRepairAttempts(t *testing.T) {
	llm := &fakeLLM{responses: []string{"still broken", "still broken", "still broken"}}
	f := New(llm)
	session := core.NewSessionBuilder().Build()

	_, err := f.Finalize(context.Background(), session, `not json at all {`, twoFieldSchema())
	if err == nil {
		t.Fatalf("expected an error after exhausting repair attempts")
	}
	if llm.calls != maxRepairAttempts {
		t.Errorf("expected %d repair calls, got %d", maxRepairAttempts, llm.calls)
	}
}

func TestFinalizeSkipsRepairWhenRecursionGuardSet(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"x": "fixed", "y": "fixed"}`}}
	f := New(llm)
	session := core.NewSessionBuilder().WithRecursionGuards(true, true).Build()

	_, err := f.Finalize(context.Background(), session, `not json`, twoFieldSchema())
	if err == nil {
		t.Fatalf("expected an error since repair is disabled")
	}
	if llm.calls != 0 {
		t.Errorf("expected no repair calls when recursion guard is set, got %d", llm.calls)
	}
}
