// Package anthropic implements core.LLMClient against Anthropic's Messages
// API using the official SDK. It is imported only by cmd/probe-agent — the
// core package talks to core.LLMClient, never to this package directly.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/probelabs/probe-agent/pkg/core"
)

const defaultModel = "claude-sonnet-4-20250514"

// Config configures a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// Client implements core.LLMClient against Anthropic's Messages API.
type Client struct {
	sdk          anthropic.Client
	defaultModel string
	maxRetries   int
	retryDelay   time.Duration
}

// New builds a Client. Config.APIKey is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		sdk:          anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}, nil
}

// Generate implements core.LLMClient.
func (c *Client) Generate(ctx context.Context, history core.History, opts core.GenerateOptions) (core.GenerateResult, error) {
	params, err := c.buildParams(history, opts)
	if err != nil {
		return core.GenerateResult{}, fmt.Errorf("anthropic: %w", err)
	}

	var resp *anthropic.Message
	for attempt := 0; ; attempt++ {
		resp, err = c.sdk.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if attempt >= c.maxRetries || !isRetryable(err) {
			return core.GenerateResult{}, fmt.Errorf("anthropic: request failed: %w", err)
		}
		backoff := c.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return core.GenerateResult{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb := block.AsText(); tb.Text != "" {
			text.WriteString(tb.Text)
		}
	}

	return core.GenerateResult{
		Text: text.String(),
		Usage: core.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		FinishReason: mapStopReason(resp.StopReason),
	}, nil
}

func (c *Client) buildParams(history core.History, opts core.GenerateOptions) (anthropic.MessageNewParams, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var systemParts []string
	var messages []anthropic.MessageParam

	for _, m := range history {
		if m.Role == core.RoleSystem {
			if text := m.Text(); text != "" {
				systemParts = append(systemParts, text)
			}
			continue
		}

		blocks, err := convertParts(m)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		if len(blocks) == 0 {
			continue
		}

		if m.Role == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: strings.Join(systemParts, "\n\n")}}
	}
	return params, nil
}

func convertParts(m core.Message) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range m.Parts {
		switch p.Kind {
		case core.PartText:
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		case core.PartImage:
			mediaType, data, ok := parseDataURL(p.ImageData)
			if !ok {
				continue
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, data))
		}
	}
	return blocks, nil
}

func parseDataURL(raw string) (mediaType, data string, ok bool) {
	const prefix = "data:"
	if !strings.HasPrefix(raw, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(raw, prefix)
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], ";base64") {
		return "", "", false
	}
	return strings.TrimSuffix(parts[0], ";base64"), parts[1], true
}

func mapStopReason(reason anthropic.StopReason) core.FinishReason {
	switch reason {
	case anthropic.StopReasonMaxTokens:
		return core.FinishLength
	case anthropic.StopReasonToolUse:
		return core.FinishToolUse
	default:
		return core.FinishStop
	}
}

// isRetryable classifies transient failures (rate limits, server errors,
// timeouts, connection resets) the same way the rest of the ecosystem's
// Anthropic providers do, since the SDK itself does not retry 5xx/429s for
// the plain (non-streaming) Messages.New call.
func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	msg := err.Error()
	for _, s := range []string{"timeout", "deadline exceeded", "connection reset", "connection refused", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
