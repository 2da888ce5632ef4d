package anthropic

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/probelabs/probe-agent/pkg/core"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatalf("expected an error without an API key")
	}
}

func TestBuildParamsExtractsSystemMessagesSeparately(t *testing.T) {
	c, err := New(Config{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := core.History{}.
		Append(core.NewTextMessage(core.RoleSystem, "you are a helpful assistant")).
		Append(core.NewTextMessage(core.RoleUser, "hello"))

	params, err := c.buildParams(history, core.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params.System) != 1 || params.System[0].Text != "you are a helpful assistant" {
		t.Errorf("System = %+v", params.System)
	}
	if len(params.Messages) != 1 {
		t.Errorf("expected 1 non-system message, got %d", len(params.Messages))
	}
}

func TestBuildParamsUsesDefaultModelAndMaxTokensWhenUnset(t *testing.T) {
	c, err := New(Config{APIKey: "sk-ant-test", DefaultModel: "claude-test-model"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	params, err := c.buildParams(core.History{}, core.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(params.Model) != "claude-test-model" {
		t.Errorf("Model = %q", params.Model)
	}
	if params.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d", params.MaxTokens)
	}
}

func TestConvertPartsIncludesImageBlocks(t *testing.T) {
	msg := core.NewTextMessage(core.RoleUser, "look at this").
		WithImages([]core.DiscoveredImage{{DataURL: "data:image/png;base64,Zm9v", MIME: "image/png"}})

	blocks, err := convertParts(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected a text block and an image block, got %d", len(blocks))
	}
}

func TestParseDataURL(t *testing.T) {
	mt, data, ok := parseDataURL("data:image/png;base64,Zm9v")
	if !ok || mt != "image/png" || data != "Zm9v" {
		t.Errorf("mt=%q data=%q ok=%v", mt, data, ok)
	}
	if _, _, ok := parseDataURL("not a data url"); ok {
		t.Errorf("expected ok=false for a non-data URL")
	}
}

func TestMapStopReason(t *testing.T) {
	cases := map[anthropic.StopReason]core.FinishReason{
		anthropic.StopReasonMaxTokens: core.FinishLength,
		anthropic.StopReasonToolUse:   core.FinishToolUse,
		anthropic.StopReasonEndTurn:   core.FinishStop,
	}
	for in, want := range cases {
		if got := mapStopReason(in); got != want {
			t.Errorf("mapStopReason(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestIsRetryableClassifiesTransientErrors(t *testing.T) {
	if !isRetryable(errors.New("dial tcp: connection reset by peer")) {
		t.Errorf("expected connection reset to be retryable")
	}
	if isRetryable(errors.New("invalid api key")) {
		t.Errorf("expected an unrelated error to be non-retryable")
	}
}
