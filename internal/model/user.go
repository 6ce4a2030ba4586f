package model

import (
	"slices"

	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

// Provenance tags written by the pipeline stages.
const (
	TagDiscovered     = "discovered"
	TagRanked         = "ranked"
	TagProfileFetched = "profile-fetched"
	TagAnalyzed       = "analyzed"
)

// Sources is an ordered, append-only set of provenance tags.
type Sources []string

// Has reports whether tag is present.
func (s Sources) Has(tag string) bool {
	return slices.Contains(s, tag)
}

// Add returns a copy of s with tag appended if it was not already present.
func (s Sources) Add(tag string) Sources {
	if tag == "" || s.Has(tag) {
		return slices.Clone(s)
	}
	out := make(Sources, 0, len(s)+1)
	out = append(out, s...)
	return append(out, tag)
}

// Union returns s followed by every tag of other not already in s.
func (s Sources) Union(other Sources) Sources {
	out := slices.Clone(s)
	for _, tag := range other {
		if tag != "" && !out.Has(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// EducationLevel is the highest completed education, as judged by analysis.
type EducationLevel string

const (
	EducationBelowBachelor EducationLevel = "below-bachelor"
	EducationBachelor      EducationLevel = "bachelor"
	EducationMaster        EducationLevel = "master"
	EducationDoctorate     EducationLevel = "doctorate"
	EducationUnknown       EducationLevel = "unknown"
)

// PersonalityTrait is one inferred trait with the evidence behind it.
type PersonalityTrait struct {
	Trait    string `json:"trait" validate:"required"`
	Evidence string `json:"evidence"`
}

// CareerPattern summarises the shape of a career.
type CareerPattern struct {
	Trajectory string `json:"trajectory"`
	Changes    string `json:"changes"`
	Focus      string `json:"focus"`
}

// EducationPattern summarises the shape of an education.
type EducationPattern struct {
	Focus       string `json:"focus"`
	Progression string `json:"progression"`
	Relevance   string `json:"relevance"`
}

// NetworkStrength summarises reach on the professional network.
type NetworkStrength struct {
	Followers   int    `json:"followers" validate:"gte=0"`
	Connections int    `json:"connections" validate:"gte=0"`
	Engagement  string `json:"engagement" validate:"omitempty,oneof=high medium low unknown"`
}

// User is one discovered contact. Fields accumulate stage by stage; a nil
// pointer, nil slice or empty string means the field has not been set.
type User struct {
	Email string `json:"email"`

	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	RoleTitle   string `json:"role_title,omitempty"`
	Confidence  *int   `json:"confidence,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Department  string `json:"department,omitempty"`
	Seniority   string `json:"seniority,omitempty"`

	PriorityScore  *float64 `json:"priority_score,omitempty"`
	PriorityReason string   `json:"priority_reason,omitempty"`

	Summary                 string             `json:"summary,omitempty"`
	ExperienceYears         *float64           `json:"experience_years,omitempty"`
	CurrentRoleTenureYears  *float64           `json:"current_role_tenure_years,omitempty"`
	KeySkills               []string           `json:"key_skills,omitempty"`
	HasLeadershipExperience *bool              `json:"has_leadership_experience,omitempty"`
	EducationLevel          EducationLevel     `json:"education_level,omitempty"`
	ProfileType             string             `json:"profile_type,omitempty"`
	PersonalityTraits       []PersonalityTrait `json:"personality_traits,omitempty"`
	CareerPattern           *CareerPattern     `json:"career_pattern,omitempty"`
	EducationPattern        *EducationPattern  `json:"education_pattern,omitempty"`
	NetworkStrength         *NetworkStrength   `json:"network_strength,omitempty"`
	FunFacts                []string           `json:"fun_facts,omitempty"`

	// Profile is the raw fetched profile. It only lives between the Enrich
	// and Analyze stages.
	Profile *linkedin.Profile `json:"profile,omitempty"`

	Sources Sources `json:"sources"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Score returns the priority score, or 0 when the record is unranked.
func (u User) Score() float64 {
	if u.PriorityScore == nil {
		return 0
	}
	return *u.PriorityScore
}
