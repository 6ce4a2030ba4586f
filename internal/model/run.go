package model

import (
	"time"
)

// RunStatus represents the current state of a prospect run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusDiscovering RunStatus = "discovering"
	RunStatusRanking     RunStatus = "ranking"
	RunStatusEnriching   RunStatus = "enriching"
	RunStatusAnalyzing   RunStatus = "analyzing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run represents a single persisted pipeline run for a domain.
type Run struct {
	ID        string     `json:"id"`
	Request   Request    `json:"request"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Users       []User        `json:"users"`
	Analyzed    int           `json:"analyzed"`
	Traces      []Trace       `json:"traces"`
	Stages      []StageResult `json:"stages"`
	TotalTokens int           `json:"total_tokens"`
	TotalCost   float64       `json:"total_cost"`
	Error       string        `json:"error,omitempty"`
}

// RunStage represents a stage row within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageStatus represents the outcome of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusPartial  StageStatus = "partial"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of one pipeline stage.
type StageResult struct {
	Name       string         `json:"name"`
	Status     StageStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	Candidates int            `json:"candidates"`
	Records    int            `json:"records"`
	Failures   int            `json:"failures"`
	TokenUsage TokenUsage     `json:"token_usage"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Cost += other.Cost
}

// Total returns input plus output tokens.
func (t TokenUsage) Total() int {
	return t.InputTokens + t.OutputTokens
}

// Result is the final output of the pipeline: every record the run
// reached, in first-seen order, plus the trace of what failed and why.
type Result struct {
	RunID   string        `json:"run_id,omitempty"`
	Request Request       `json:"request"`
	Users   []User        `json:"users"`
	Traces  []Trace       `json:"traces"`
	Stages  []StageResult `json:"stages"`
	Usage   TokenUsage    `json:"usage"`
}

// Analyzed returns only the fully enriched records.
func (r *Result) Analyzed() []User {
	out := make([]User, 0, len(r.Users))
	for _, u := range r.Users {
		if u.Sources.Has(TagAnalyzed) {
			out = append(out, u)
		}
	}
	return out
}

// RunResult converts the pipeline output into its persisted form.
func (r *Result) RunResult() *RunResult {
	return &RunResult{
		Users:       r.Users,
		Analyzed:    len(r.Analyzed()),
		Traces:      r.Traces,
		Stages:      r.Stages,
		TotalTokens: r.Usage.Total(),
		TotalCost:   r.Usage.Cost,
	}
}
