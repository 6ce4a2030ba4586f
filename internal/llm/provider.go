package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/config"
	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/resilience"
	"github.com/dtb-digital/prospect-agent/pkg/anthropic"
	"github.com/dtb-digital/prospect-agent/pkg/gemini"
)

// FromConfig builds the configured provider wrapped in Resilient.
func FromConfig(ctx context.Context, cfg *config.Config, calc *cost.Calculator) (Completer, error) {
	var (
		inner Completer
		name  = cfg.LLM.Provider
	)
	switch name {
	case "anthropic":
		inner = NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), AnthropicConfig{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}, calc)
	case "gemini":
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, opts...)
		if err != nil {
			return nil, eris.Wrap(err, "llm: gemini client")
		}
		inner = NewGemini(client, GeminiConfig{
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}, calc)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", name)
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.LLM.MaxAttempts

	breaker := resilience.DefaultCircuitBreakerConfig()
	breaker.FailureThreshold = cfg.LLM.BreakerThreshold
	if cfg.LLM.BreakerResetSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.LLM.BreakerResetSecs) * time.Second
	}

	return NewResilient(inner, name, retry, breaker), nil
}
