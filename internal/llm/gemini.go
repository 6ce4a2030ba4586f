package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/resilience"
	"github.com/dtb-digital/prospect-agent/pkg/gemini"
)

// GeminiConfig holds per-call settings for Gemini.
type GeminiConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Gemini adapts a gemini.Client to Completer.
type Gemini struct {
	client gemini.Client
	cfg    GeminiConfig
	calc   *cost.Calculator
}

// NewGemini creates a Gemini-backed Completer. calc may be nil.
func NewGemini(client gemini.Client, cfg GeminiConfig, calc *cost.Calculator) *Gemini {
	return &Gemini{client: client, cfg: cfg, calc: calc}
}

// Complete sends one prompt. Gemini has no explicit cache breakpoints, so
// CacheSystem is ignored.
func (g *Gemini) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	temp := float32(g.cfg.Temperature)
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{
		Model:       g.cfg.Model,
		System:      p.System,
		Prompt:      p.User,
		MaxTokens:   int32(g.cfg.MaxTokens),
		Temperature: &temp,
		JSON:        p.JSON,
	})
	if err != nil {
		return nil, classifyGemini(err)
	}
	if resp.Text == "" {
		return nil, eris.New("llm: gemini returned no text")
	}

	usage := model.TokenUsage{
		InputTokens:  int(resp.InputTokens),
		OutputTokens: int(resp.OutputTokens),
	}
	if g.calc != nil {
		usage.Cost = g.calc.Gemini(g.cfg.Model, usage.InputTokens, usage.OutputTokens)
	}
	return &Completion{Text: resp.Text, Model: g.cfg.Model, Usage: usage}, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus(err, apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return resilience.ClassifyStatus(err, apiErrPtr.Code)
	}
	return err
}
