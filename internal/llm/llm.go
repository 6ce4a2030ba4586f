// Package llm hides the model provider behind a single-turn text completion
// interface used by the ranking and analysis stages.
package llm

import (
	"context"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

// Prompt is one rendered request to a language model.
type Prompt struct {
	// Operation names the caller for logs and cost attribution.
	Operation string
	System    string
	User      string
	// CacheSystem asks the provider to cache the system prompt when it
	// supports prompt caching.
	CacheSystem bool
	// JSON asks for a JSON response body when the provider supports it.
	JSON bool
}

// Completion is the raw model text plus what it cost.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Completer submits a prompt and returns the model's text. Implementations
// do not interpret the text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}
