package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

func sampleResult() *model.Result {
	score, years := 0.9, 12.0
	return &model.Result{
		RunID:   "run-123",
		Request: model.Request{Domain: "acme.com", TargetRole: "CTO", MaxResults: 5, SearchDepth: 1},
		Users: []model.User{
			{
				Email: "ann@acme.com", FirstName: "Ann", LastName: "Lee", RoleTitle: "CTO",
				PriorityScore: &score, ExperienceYears: &years, EducationLevel: model.EducationMaster,
				Sources: model.Sources{model.TagDiscovered, model.TagRanked, model.TagProfileFetched, model.TagAnalyzed},
			},
			{Email: "bob@acme.com", FirstName: "Bob", Sources: model.Sources{model.TagDiscovered}},
		},
		Traces: []model.Trace{
			{Stage: "enrich", Kind: model.TraceCollaboratorUnreachable, Email: "cat@acme.com", Message: "enrich: fetch failed"},
			{Stage: "rank", Kind: model.TraceInfo, Message: "rank: kept top 5 of 7 ranked contacts"},
		},
		Usage: model.TokenUsage{InputTokens: 1000, OutputTokens: 200, Cost: 0.0123},
	}
}

func TestWriteResultJSON_AnalyzedOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultJSON(&buf, sampleResult(), false))

	var got model.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Users, 1)
	assert.Equal(t, "ann@acme.com", got.Users[0].Email)
	assert.Len(t, got.Traces, 2)
	assert.Equal(t, "run-123", got.RunID)
}

func TestWriteResultJSON_All(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, writeResultJSON(&buf, res, true))

	var got model.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got.Users, 2)
	assert.Len(t, res.Users, 2, "input must not be modified")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sampleResult(), false))

	out := buf.String()
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "ann@acme.com")
	assert.Contains(t, out, "Ann Lee")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "master")
	assert.NotContains(t, out, "bob@acme.com")
	assert.Contains(t, out, "cat@acme.com")
	assert.NotContains(t, out, "kept top 5", "info traces are not printed")
	assert.Contains(t, out, "run run-123")
}

func TestWriteTable_AllIncludesUnanalyzed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sampleResult(), true))
	assert.Contains(t, buf.String(), "bob@acme.com")
}

func TestRunCmd_RejectsUnknownFormat(t *testing.T) {
	runFormat = "xml"
	defer func() { runFormat = "json" }()

	runCmd.SetContext(context.Background())
	defer runCmd.SetContext(nil) //nolint:staticcheck

	err := runCmd.RunE(runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown --format")
}
