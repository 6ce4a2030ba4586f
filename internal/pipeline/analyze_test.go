package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtb-digital/prospect-agent/internal/llm"
	"github.com/dtb-digital/prospect-agent/internal/llm/mocks"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

const validAnalysis = `{
	"summary": "Engineering leader with a platform background.",
	"experience_years": 14,
	"current_role_tenure_years": 3.3,
	"key_skills": ["Go", "Kubernetes"],
	"has_leadership_experience": true,
	"education_level": "master",
	"profile_type": "technical leader",
	"personality_traits": [{"trait": "builder", "evidence": "founded two teams"}],
	"career_pattern": {"trajectory": "rising", "changes": "rare", "focus": "infrastructure"},
	"education_pattern": {"focus": "technical", "progression": "completed", "relevance": "high"},
	"network_strength": {"followers": 1200, "connections": 500, "engagement": "medium"},
	"fun_facts": ["runs marathons"]
}`

func newAnalyzeStage(c llm.Completer) *analyzeStage {
	return &analyzeStage{llm: c, prompts: DefaultPrompts(), concurrency: 2}
}

func TestAnalyze_OverlaysAnalysis(t *testing.T) {
	t.Parallel()

	lc := mocks.NewMockCompleter(t)
	lc.On("Complete", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return p.Operation == "analyze" && p.CacheSystem && p.JSON &&
			strings.Contains(p.User, "Platform at Acme") &&
			strings.Contains(p.User, "VP Engineering")
	})).Return(completion(validAnalysis), nil).Once()

	st := stateWith(fetched("a@acme.com", &linkedin.Profile{About: "Platform at Acme"}))
	d, err := newAnalyzeStage(lc).Run(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, d.Users, 1)
	u := d.Users[0]
	assert.Equal(t, "Engineering leader with a platform background.", u.Summary)
	assert.InDelta(t, 14, *u.ExperienceYears, 1e-9)
	assert.InDelta(t, 3.5, *u.CurrentRoleTenureYears, 1e-9)
	assert.Equal(t, []string{"Go", "Kubernetes"}, u.KeySkills)
	assert.True(t, *u.HasLeadershipExperience)
	assert.Equal(t, model.EducationMaster, u.EducationLevel)
	assert.Equal(t, "medium", u.NetworkStrength.Engagement)
	assert.Equal(t, model.Sources{model.TagAnalyzed}, u.Sources)
	assert.Equal(t, []string{"a@acme.com"}, d.ClearProfile)

	st.Records.Apply(d.Users...)
	for _, e := range d.ClearProfile {
		st.Records.ClearProfile(e)
	}
	got, _ := st.Records.Get("a@acme.com")
	assert.Nil(t, got.Profile)
	assert.Equal(t, model.Sources{model.TagDiscovered, model.TagRanked, model.TagProfileFetched, model.TagAnalyzed}, got.Sources)
}

func TestAnalyze_PerItemFailures(t *testing.T) {
	t.Parallel()

	badEnum := strings.Replace(validAnalysis, `"master"`, `"PhD"`, 1)

	lc := mocks.NewMockCompleter(t)
	lc.On("Complete", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool { return strings.Contains(p.User, "good@") })).
		Return(completion(validAnalysis), nil).Once()
	lc.On("Complete", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool { return strings.Contains(p.User, "enum@") })).
		Return(completion(badEnum), nil).Once()
	lc.On("Complete", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool { return strings.Contains(p.User, "down@") })).
		Return(nil, errors.New("circuit breaker is open")).Once()

	st := stateWith(
		fetched("good@acme.com", &linkedin.Profile{About: "a"}),
		fetched("enum@acme.com", &linkedin.Profile{About: "b"}),
		fetched("down@acme.com", &linkedin.Profile{About: "c"}),
	)
	d, err := newAnalyzeStage(lc).Run(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, []string{"good@acme.com"}, emails(d.Users))
	assert.Equal(t, []string{"good@acme.com"}, d.ClearProfile)
	require.Len(t, d.Traces, 2)

	kinds := map[string]model.TraceKind{}
	for _, tr := range d.Traces {
		kinds[tr.Email] = tr.Kind
	}
	assert.Equal(t, model.TraceSchemaViolation, kinds["enum@acme.com"])
	assert.Equal(t, model.TraceCollaboratorUnreachable, kinds["down@acme.com"])
}

func TestProfileAnalysis_Check(t *testing.T) {
	t.Parallel()

	a := &ProfileAnalysis{ExperienceYears: floatp(2), CurrentRoleTenureYears: floatp(10)}
	assert.Error(t, a.Check())

	a.CurrentRoleTenureYears = floatp(2.5)
	assert.NoError(t, a.Check())
}

func TestRoundHalf(t *testing.T) {
	t.Parallel()
	for in, want := range map[float64]float64{0: 0, 0.2: 0, 0.3: 0.5, 1.74: 1.5, 1.76: 2, 4.5: 4.5} {
		assert.InDelta(t, want, roundHalf(in), 1e-9, "%v", in)
	}
}
