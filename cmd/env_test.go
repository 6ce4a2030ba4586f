package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtb-digital/prospect-agent/internal/config"
	"github.com/dtb-digital/prospect-agent/internal/events"
	"github.com/dtb-digital/prospect-agent/internal/store"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Hunter:    config.HunterConfig{Key: "hk", BaseURL: "http://127.0.0.1:1", PageSize: 50},
		LinkedIn:  config.LinkedInConfig{Key: "lk", Host: "profiles.test", BaseURL: "http://127.0.0.1:1"},
		Anthropic: config.AnthropicConfig{Key: "ak", Model: "claude-haiku-4-5-20251001", MaxTokens: 1024},
		LLM:       config.LLMConfig{Provider: "anthropic", MaxAttempts: 1},
		Pipeline:  config.PipelineConfig{MaxConcurrency: 2},
		Profile:   config.ProfileConfig{CacheTTLHours: 1},
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "prospect.db"),
		},
		Server: config.ServerConfig{Port: 8080},
	}
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql", DatabaseURL: "x"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = sqliteConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestInitPipeline_ValidatesConfig(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.Hunter.Key = ""

	_, err := initPipeline(context.Background(), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hunter.key")
}

func TestInitPipeline_BadPromptsFile(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.Pipeline.PromptsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := initPipeline(context.Background(), "run")
	require.Error(t, err)
}

func TestInitPipeline_SQLiteWithoutEvents(t *testing.T) {
	cfg = sqliteConfig(t)

	env, err := initPipeline(context.Background(), "run")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Store)
	assert.IsType(t, events.Nop{}, env.Publisher)
}
