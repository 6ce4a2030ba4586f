package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRequest(domain string) model.Request {
	return model.Request{Domain: domain, TargetRole: "VP Engineering", MaxResults: 5, SearchDepth: 3}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testRequest("acme.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusEnriching))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusEnriching, got.Status)
	assert.Equal(t, "acme.com", got.Request.Domain)
	assert.Nil(t, got.Result)

	result := &model.RunResult{Analyzed: 2, TotalTokens: 1200, TotalCost: 0.012}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 2, got.Result.Analyzed)
	assert.Equal(t, 1200, got.Result.TotalTokens)
}

func TestSQLite_FailedResultMarksRunFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testRequest("acme.com"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, &model.RunResult{Error: "boom"}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestSQLite_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.GetRun(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.UpdateRunStatus(ctx, "missing", model.RunStatusFailed)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.CompleteStage(ctx, "missing", &model.StageResult{Status: model.StageStatusComplete})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	a, err := s.CreateRun(ctx, testRequest("acme.com"))
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, testRequest("globex.com"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, a.ID, model.RunStatusFailed))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byDomain, err := s.ListRuns(ctx, RunFilter{Domain: "globex.com"})
	require.NoError(t, err)
	require.Len(t, byDomain, 1)
	assert.Equal(t, "globex.com", byDomain[0].Request.Domain)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Stages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testRequest("acme.com"))
	require.NoError(t, err)

	st, err := s.CreateStage(ctx, run.ID, "rank")
	require.NoError(t, err)
	assert.Equal(t, model.StageStatusRunning, st.Status)

	require.NoError(t, s.CompleteStage(ctx, st.ID, &model.StageResult{
		Name:       "rank",
		Status:     model.StageStatusPartial,
		Candidates: 4,
		Records:    3,
		Failures:   1,
	}))

	stages, err := s.ListStages(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, model.StageStatusPartial, stages[0].Status)
	require.NotNil(t, stages[0].Result)
	assert.Equal(t, 1, stages[0].Result.Failures)
}

func TestSQLite_ProfileCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)
	url := "https://www.linkedin.com/in/jane"

	got, err := s.GetCachedProfile(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SetCachedProfile(ctx, url, []byte(`{"about":"v1"}`), time.Hour))
	require.NoError(t, s.SetCachedProfile(ctx, url, []byte(`{"about":"v2"}`), time.Hour))

	got, err = s.GetCachedProfile(ctx, url)
	require.NoError(t, err)
	assert.JSONEq(t, `{"about":"v2"}`, string(got))
}

func TestSQLite_ProfileCacheExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.SetCachedProfile(ctx, "https://linkedin.com/in/old", []byte(`{}`), -time.Hour))
	require.NoError(t, s.SetCachedProfile(ctx, "https://linkedin.com/in/new", []byte(`{}`), time.Hour))

	got, err := s.GetCachedProfile(ctx, "https://linkedin.com/in/old")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = s.GetCachedProfile(ctx, "https://linkedin.com/in/new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
