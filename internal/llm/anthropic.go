package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/resilience"
	"github.com/dtb-digital/prospect-agent/pkg/anthropic"
)

// AnthropicConfig holds per-call settings for Claude.
type AnthropicConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Anthropic adapts an anthropic.Client to Completer.
type Anthropic struct {
	client anthropic.Client
	cfg    AnthropicConfig
	calc   *cost.Calculator
}

// NewAnthropic creates a Claude-backed Completer. calc may be nil.
func NewAnthropic(client anthropic.Client, cfg AnthropicConfig, calc *cost.Calculator) *Anthropic {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Anthropic{client: client, cfg: cfg, calc: calc}
}

// Complete sends one user message with an optional system prompt.
func (a *Anthropic) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	temp := a.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   int64(a.cfg.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		if p.CacheSystem {
			req.System = anthropic.BuildCachedSystemBlocks(p.System)
		} else {
			req.System = []anthropic.SystemBlock{{Text: p.System}}
		}
	}

	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, classifyAnthropic(err)
	}

	usage := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	if a.calc != nil {
		usage.Cost = a.calc.Claude(a.cfg.Model, usage.InputTokens, usage.OutputTokens,
			usage.CacheCreationTokens, usage.CacheReadTokens)
	}

	text := resp.Text()
	if text == "" {
		return nil, eris.Errorf("llm: anthropic returned no text (stop_reason=%s)", resp.StopReason)
	}
	return &Completion{Text: text, Model: a.cfg.Model, Usage: usage}, nil
}

func classifyAnthropic(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus(err, apiErr.StatusCode)
	}
	return err
}
