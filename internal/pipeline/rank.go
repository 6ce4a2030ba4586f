package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/llm"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/records"
	"github.com/dtb-digital/prospect-agent/internal/shape"
)

// RankingResult is the shape of the ranking model's reply.
type RankingResult struct {
	Users map[string]RankedUser `json:"users" validate:"required,dive,keys,required,endkeys"`
}

// RankedUser is one scored contact in a RankingResult.
type RankedUser struct {
	Score  *float64 `json:"score" validate:"required,gte=0,lte=1"`
	Reason string   `json:"reason" validate:"required"`
}

// rankCandidate is the public view of a record sent to the model.
type rankCandidate struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	RoleTitle  string `json:"role_title,omitempty"`
	Department string `json:"department,omitempty"`
	Seniority  string `json:"seniority,omitempty"`
	Confidence *int   `json:"confidence,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

type rankStage struct {
	llm              llm.Completer
	prompts          *Prompts
	requireRoleTitle bool
	enforceCap       bool
}

func (s *rankStage) Name() string { return StepRank.String() }

func (s *rankStage) candidates(st *State) []model.User {
	return st.Records.Filter(func(u model.User) bool {
		if !u.Sources.Has(model.TagDiscovered) {
			return false
		}
		return !s.requireRoleTitle || u.RoleTitle != ""
	})
}

func (s *rankStage) Run(ctx context.Context, st *State) (Delta, error) {
	cands := s.candidates(st)
	d := Delta{Candidates: len(cands)}
	if len(cands) == 0 {
		return d, nil
	}

	view := make([]rankCandidate, len(cands))
	for i, u := range cands {
		view[i] = rankCandidate{
			Email:      u.Email,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			RoleTitle:  u.RoleTitle,
			Department: u.Department,
			Seniority:  u.Seniority,
			Confidence: u.Confidence,
			ProfileURL: u.ProfileURL,
		}
	}
	body, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return d, eris.Wrap(err, "rank: marshal candidates")
	}

	user, err := s.prompts.renderRank(rankData{
		Role:       st.Request.TargetRole,
		MaxResults: st.Request.MaxResults,
		Candidates: string(body),
	})
	if err != nil {
		return d, err
	}

	comp, err := s.llm.Complete(ctx, llm.Prompt{
		Operation: s.Name(),
		System:    s.prompts.RankSystem,
		User:      user,
		JSON:      true,
	})
	if err != nil {
		return d, eris.Wrap(err, "rank: complete")
	}
	d.Usage = comp.Usage

	parsed, err := shape.Validate[RankingResult](comp.Text)
	if err != nil {
		return d, err
	}

	known := make(map[string]bool, len(cands))
	for _, u := range cands {
		known[records.Key(u.Email)] = true
	}

	type scored struct {
		email  string
		score  float64
		reason string
	}
	picked := make([]scored, 0, len(parsed.Users))
	for email, ru := range parsed.Users {
		key := records.Key(email)
		if !known[key] {
			d.Traces = append(d.Traces, newTrace(s.Name(), model.TraceInfo, email,
				"rank: model returned a contact that was not a candidate; ignored"))
			continue
		}
		picked = append(picked, scored{email: key, score: *ru.Score, reason: ru.Reason})
	}
	slices.SortFunc(picked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.email, b.email)
	})

	if s.enforceCap && len(picked) > st.Request.MaxResults {
		d.Traces = append(d.Traces, newTrace(s.Name(), model.TraceInfo, "",
			fmt.Sprintf("rank: kept top %d of %d ranked contacts", st.Request.MaxResults, len(picked))))
		picked = picked[:st.Request.MaxResults]
	}

	for _, p := range picked {
		d.Users = append(d.Users, model.User{
			Email:          p.email,
			PriorityScore:  &p.score,
			PriorityReason: p.reason,
			Sources:        model.Sources{model.TagRanked},
		})
	}
	return d, nil
}
