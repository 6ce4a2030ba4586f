package pipeline

import (
	"bytes"
	"os"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Prompts holds the system instructions and user templates for the two
// model-backed stages. User templates are text/template sources.
type Prompts struct {
	RankSystem    string `yaml:"rank_system"`
	RankUser      string `yaml:"rank_user"`
	AnalyzeSystem string `yaml:"analyze_system"`
	AnalyzeUser   string `yaml:"analyze_user"`

	rank    *template.Template
	analyze *template.Template
}

// rankData fills the rank user template.
type rankData struct {
	Role       string
	MaxResults int
	Candidates string
}

// analyzeData fills the analyze user template.
type analyzeData struct {
	Role    string
	Name    string
	Email   string
	Profile string
}

const defaultRankSystem = `You assess which people at a company are the most relevant contacts for a target role.
Reply with a single JSON object and nothing else.`

const defaultRankUser = `Assess these people for the role "{{.Role}}".

People:
{{.Candidates}}

Judge each person on:
- Profile: a valid profile URL is required
- Role: how relevant the current title is to the target role
- Data quality: the confidence score and how much information is available

Scoring:
- Give a score from 0.0 to 1.0 for how relevant the person is
- Score higher when there are strong signs of a match with the target role
- Score lower when data is missing or relevance is unclear
- People without a profile URL get a score of 0.0

Return the {{.MaxResults}} most relevant people as JSON:
{
  "users": {
    "person@example.com": {
      "score": 0.85,
      "reason": "why the role is relevant, the quality of the data, other observations"
    }
  }
}

Prefer quality over quantity. These people will be researched further through their profiles.`

const defaultAnalyzeSystem = `You analyse professional profiles for sales prospecting.
Reply with a single JSON object and nothing else. Use only facts present in the profile.`

const defaultAnalyzeUser = `Analyse this profile for the role "{{.Role}}".
Person: {{.Name}} <{{.Email}}>

Return these fields as JSON:
{
  "summary": "a short professional summary based on all available data",
  "experience_years": 0,
  "current_role_tenure_years": 0.0,
  "key_skills": [],
  "has_leadership_experience": false,
  "education_level": "one of: below-bachelor, bachelor, master, doctorate, unknown",
  "profile_type": "",
  "personality_traits": [{"trait": "", "evidence": ""}],
  "career_pattern": {"trajectory": "rising/stable/etc", "changes": "frequent/rare job changes", "focus": "main career focus"},
  "education_pattern": {"focus": "technical/business/etc", "progression": "ongoing/completed", "relevance": "high/medium/low"},
  "network_strength": {"followers": 0, "connections": 0, "engagement": "one of: high, medium, low, unknown"},
  "fun_facts": []
}

Profile data:
{{.Profile}}

Notes:
- education_level must be one of: below-bachelor, bachelor, master, doctorate, unknown
- round current_role_tenure_years to the nearest half year`

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() *Prompts {
	p := &Prompts{
		RankSystem:    defaultRankSystem,
		RankUser:      defaultRankUser,
		AnalyzeSystem: defaultAnalyzeSystem,
		AnalyzeUser:   defaultAnalyzeUser,
	}
	if err := p.compile(); err != nil {
		panic(err)
	}
	return p
}

// LoadPrompts reads a YAML prompt file. Keys left out of the file keep
// their built-in value. An empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read prompts %s", path)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse prompts")
	}

	if override.RankSystem != "" {
		p.RankSystem = override.RankSystem
	}
	if override.RankUser != "" {
		p.RankUser = override.RankUser
	}
	if override.AnalyzeSystem != "" {
		p.AnalyzeSystem = override.AnalyzeSystem
	}
	if override.AnalyzeUser != "" {
		p.AnalyzeUser = override.AnalyzeUser
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompts) compile() error {
	var err error
	if p.rank, err = template.New("rank").Option("missingkey=error").Parse(p.RankUser); err != nil {
		return eris.Wrap(err, "pipeline: parse rank template")
	}
	if p.analyze, err = template.New("analyze").Option("missingkey=error").Parse(p.AnalyzeUser); err != nil {
		return eris.Wrap(err, "pipeline: parse analyze template")
	}
	return nil
}

func (p *Prompts) renderRank(d rankData) (string, error) {
	var buf bytes.Buffer
	if err := p.rank.Execute(&buf, d); err != nil {
		return "", eris.Wrap(err, "pipeline: render rank prompt")
	}
	return buf.String(), nil
}

func (p *Prompts) renderAnalyze(d analyzeData) (string, error) {
	var buf bytes.Buffer
	if err := p.analyze.Execute(&buf, d); err != nil {
		return "", eris.Wrap(err, "pipeline: render analyze prompt")
	}
	return buf.String(), nil
}
