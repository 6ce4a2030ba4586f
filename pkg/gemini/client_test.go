package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: api key is required")
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"users\": {}}"}]}}],
			"usageMetadata": {"promptTokenCount": 210, "candidatesTokenCount": 15},
			"modelVersion": "gemini-2.5-flash-001"
		}`))
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(ts.URL))
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:  "gemini-2.5-flash",
		System: "You rank contacts.",
		Prompt: "contacts here",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"users": {}}`, resp.Text)
	assert.Equal(t, int64(210), resp.InputTokens)
	assert.Equal(t, int64(15), resp.OutputTokens)
	assert.Equal(t, "gemini-2.5-flash-001", resp.Model)

	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.NotNil(t, body["systemInstruction"])
}

func TestGenerate_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}

func TestGenerate_RequiresModel(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
}
