package pipeline

import (
	"context"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/llm"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/shape"
)

// ProfileAnalysis is the shape of the analysis model's reply.
type ProfileAnalysis struct {
	Summary                 string                   `json:"summary" validate:"required"`
	ExperienceYears         *float64                 `json:"experience_years" validate:"required,gte=0"`
	CurrentRoleTenureYears  *float64                 `json:"current_role_tenure_years" validate:"omitempty,gte=0"`
	KeySkills               []string                 `json:"key_skills"`
	HasLeadershipExperience *bool                    `json:"has_leadership_experience" validate:"required"`
	EducationLevel          model.EducationLevel     `json:"education_level" validate:"required,oneof=below-bachelor bachelor master doctorate unknown"`
	ProfileType             string                   `json:"profile_type"`
	PersonalityTraits       []model.PersonalityTrait `json:"personality_traits" validate:"omitempty,dive"`
	CareerPattern           *model.CareerPattern     `json:"career_pattern"`
	EducationPattern        *model.EducationPattern  `json:"education_pattern"`
	NetworkStrength         *model.NetworkStrength   `json:"network_strength"`
	FunFacts                []string                 `json:"fun_facts"`
}

// Check rejects a tenure longer than the whole career.
func (a *ProfileAnalysis) Check() error {
	if a.CurrentRoleTenureYears != nil && *a.CurrentRoleTenureYears > *a.ExperienceYears+1 {
		return &shape.Error{
			Kind:  shape.SchemaViolation,
			Field: "current_role_tenure_years",
			Err:   eris.New("exceeds experience_years"),
		}
	}
	return nil
}

// apply overlays the analysis onto a delta record for email.
func (a *ProfileAnalysis) apply(email string) model.User {
	u := model.User{
		Email:                   email,
		Summary:                 a.Summary,
		ExperienceYears:         a.ExperienceYears,
		KeySkills:               a.KeySkills,
		HasLeadershipExperience: a.HasLeadershipExperience,
		EducationLevel:          a.EducationLevel,
		ProfileType:             a.ProfileType,
		PersonalityTraits:       a.PersonalityTraits,
		CareerPattern:           a.CareerPattern,
		EducationPattern:        a.EducationPattern,
		NetworkStrength:         a.NetworkStrength,
		FunFacts:                a.FunFacts,
		Sources:                 model.Sources{model.TagAnalyzed},
	}
	if a.CurrentRoleTenureYears != nil {
		t := roundHalf(*a.CurrentRoleTenureYears)
		u.CurrentRoleTenureYears = &t
	}
	return u
}

// roundHalf rounds to the nearest half.
func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

// analyzeStage turns each fetched profile into structured analysis.
type analyzeStage struct {
	llm         llm.Completer
	prompts     *Prompts
	concurrency int
	rps         float64
}

func (s *analyzeStage) Name() string { return StepAnalyze.String() }

func (s *analyzeStage) Run(ctx context.Context, st *State) (Delta, error) {
	cands := st.Records.Tagged(model.TagProfileFetched)
	if len(cands) == 0 {
		return Delta{}, nil
	}

	items := fanOut(ctx, cands, s.concurrency, newLimiter(s.rps), func(ctx context.Context, u model.User) ItemResult {
		return s.analyzeOne(ctx, st.Request.TargetRole, u)
	})

	d := Fold(s.Name(), items)
	for _, u := range d.Users {
		d.ClearProfile = append(d.ClearProfile, u.Email)
	}
	return d, nil
}

func (s *analyzeStage) analyzeOne(ctx context.Context, role string, u model.User) ItemResult {
	if u.Profile == nil {
		return ItemResult{Err: &StageError{Kind: model.TraceSchemaViolation, Err: eris.New("analyze: record has no profile")}}
	}
	profile, err := json.MarshalIndent(u.Profile, "", "  ")
	if err != nil {
		return ItemResult{Err: eris.Wrap(err, "analyze: marshal profile")}
	}

	user, err := s.prompts.renderAnalyze(analyzeData{
		Role:    role,
		Name:    u.FullName(),
		Email:   u.Email,
		Profile: string(profile),
	})
	if err != nil {
		return ItemResult{Err: err}
	}

	comp, err := s.llm.Complete(ctx, llm.Prompt{
		Operation:   s.Name(),
		System:      s.prompts.AnalyzeSystem,
		User:        user,
		CacheSystem: true,
		JSON:        true,
	})
	if err != nil {
		return ItemResult{Err: eris.Wrap(err, "analyze: complete")}
	}

	a, err := shape.Validate[ProfileAnalysis](comp.Text)
	if err != nil {
		return ItemResult{Usage: comp.Usage, Err: err}
	}
	return ItemResult{Usage: comp.Usage, User: a.apply(u.Email)}
}
