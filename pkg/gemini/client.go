// Package gemini wraps the Google Gen AI SDK for single-turn JSON generation.
package gemini

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini operations used by the pipeline.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-turn prompt.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature *float32
	// JSON requests an application/json response body.
	JSON bool
}

// GenerateResponse carries the response text and token counts.
type GenerateResponse struct {
	Model        string
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Option configures the client.
type Option func(*genai.ClientConfig)

// WithBaseURL overrides the API base URL. Useful for proxies and tests.
func WithBaseURL(u string) Option {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = u }
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, fn := range opts {
		fn(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, eris.New("gemini: model is required")
	}

	cfg := &genai.GenerateContentConfig{CandidateCount: 1}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &GenerateResponse{Model: req.Model, Text: resp.Text()}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int64(u.PromptTokenCount)
		out.OutputTokens = int64(u.CandidatesTokenCount)
	}
	return out, nil
}
