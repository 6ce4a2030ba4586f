package records

import (
	"github.com/dtb-digital/prospect-agent/internal/model"
)

// Merge overlays incoming onto existing. Every field set on incoming
// replaces the field on existing, unset fields leave existing untouched,
// and Sources is the ordered union of both. The email of existing is kept.
func Merge(existing, incoming model.User) model.User {
	out := existing

	overlayString(&out.FirstName, incoming.FirstName)
	overlayString(&out.LastName, incoming.LastName)
	overlayString(&out.RoleTitle, incoming.RoleTitle)
	overlayPtr(&out.Confidence, incoming.Confidence)
	overlayString(&out.ProfileURL, incoming.ProfileURL)
	overlayString(&out.PhoneNumber, incoming.PhoneNumber)
	overlayString(&out.Department, incoming.Department)
	overlayString(&out.Seniority, incoming.Seniority)

	overlayPtr(&out.PriorityScore, incoming.PriorityScore)
	overlayString(&out.PriorityReason, incoming.PriorityReason)

	overlayString(&out.Summary, incoming.Summary)
	overlayPtr(&out.ExperienceYears, incoming.ExperienceYears)
	overlayPtr(&out.CurrentRoleTenureYears, incoming.CurrentRoleTenureYears)
	overlaySlice(&out.KeySkills, incoming.KeySkills)
	overlayPtr(&out.HasLeadershipExperience, incoming.HasLeadershipExperience)
	if incoming.EducationLevel != "" {
		out.EducationLevel = incoming.EducationLevel
	}
	overlayString(&out.ProfileType, incoming.ProfileType)
	overlaySlice(&out.PersonalityTraits, incoming.PersonalityTraits)
	overlayPtr(&out.CareerPattern, incoming.CareerPattern)
	overlayPtr(&out.EducationPattern, incoming.EducationPattern)
	overlayPtr(&out.NetworkStrength, incoming.NetworkStrength)
	overlaySlice(&out.FunFacts, incoming.FunFacts)

	overlayPtr(&out.Profile, incoming.Profile)

	out.Sources = existing.Sources.Union(incoming.Sources)
	return out
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayPtr[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// overlaySlice treats a nil slice as unset; an empty non-nil slice is a
// value and replaces the existing one.
func overlaySlice[T any](dst *[]T, v []T) {
	if v != nil {
		*dst = v
	}
}
