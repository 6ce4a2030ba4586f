package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Request:   model.Request{Domain: "acme.com", TargetRole: "CTO"},
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Users: make([]model.User, 4), Analyzed: 3, TotalCost: 0.25},
			CreatedAt: now,
		},
		{
			ID:        "def12345",
			Request:   model.Request{Domain: "beta.io", TargetRole: "Head of Sales"},
			Status:    model.RunStatusRanking,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "DOMAIN")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "acme.com")
	assert.Contains(t, out, "3/4")
	assert.Contains(t, out, "$0.2500")
	assert.Contains(t, out, "ranking")
	assert.Contains(t, out, "Head of Sales")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))
}

func TestRunsShow(t *testing.T) {
	cfg = sqliteConfig(t)
	ctx := context.Background()

	st, err := initStore(ctx)
	require.NoError(t, err)
	run, err := st.CreateRun(ctx, model.Request{Domain: "acme.com", TargetRole: "CTO", MaxResults: 5, SearchDepth: 1})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	var buf bytes.Buffer
	runsShowCmd.SetOut(&buf)
	runsShowCmd.SetContext(ctx)
	defer runsShowCmd.SetOut(nil)

	require.NoError(t, runsShowCmd.RunE(runsShowCmd, []string{run.ID}))

	var got model.Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "acme.com", got.Request.Domain)
}

func TestRunsShow_NotFound(t *testing.T) {
	cfg = sqliteConfig(t)
	runsShowCmd.SetContext(context.Background())

	err := runsShowCmd.RunE(runsShowCmd, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
