package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrompts_Render(t *testing.T) {
	t.Parallel()

	p := DefaultPrompts()
	rank, err := p.renderRank(rankData{Role: "CFO", MaxResults: 3, Candidates: `[{"email":"a@acme.com"}]`})
	require.NoError(t, err)
	assert.Contains(t, rank, `"CFO"`)
	assert.Contains(t, rank, "Return the 3 most relevant")
	assert.Contains(t, rank, "a@acme.com")

	analyze, err := p.renderAnalyze(analyzeData{Role: "CFO", Name: "Ann Berg", Email: "ann@acme.com", Profile: `{"about":"x"}`})
	require.NoError(t, err)
	assert.Contains(t, analyze, "Ann Berg <ann@acme.com>")
	assert.Contains(t, analyze, "below-bachelor, bachelor, master, doctorate, unknown")
}

func TestLoadPrompts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rank_system: "Rank carefully."
rank_user: "Role {{.Role}} max {{.MaxResults}}: {{.Candidates}}"
`), 0o600))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Rank carefully.", p.RankSystem)
	assert.Equal(t, defaultAnalyzeSystem, p.AnalyzeSystem)

	out, err := p.renderRank(rankData{Role: "CTO", MaxResults: 2, Candidates: "[]"})
	require.NoError(t, err)
	assert.Equal(t, "Role CTO max 2: []", out)
}

func TestLoadPrompts_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, defaultRankUser, p.RankUser)
}

func TestLoadPrompts_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadPrompts(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("rank_user: [unclosed"), 0o600))
	_, err = LoadPrompts(badYAML)
	assert.Error(t, err)

	badTemplate := filepath.Join(dir, "tmpl.yaml")
	require.NoError(t, os.WriteFile(badTemplate, []byte(`analyze_user: "{{.Role"`), 0o600))
	_, err = LoadPrompts(badTemplate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze template")
}

func TestRenderRank_UnknownFieldFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rank_user: "{{.Nope}}"`), 0o600))
	p, err := LoadPrompts(path)
	require.NoError(t, err)

	_, err = p.renderRank(rankData{})
	assert.Error(t, err)
}
