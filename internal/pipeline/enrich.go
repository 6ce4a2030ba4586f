package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

// enrichStage fetches the profile document for each ranked contact.
type enrichStage struct {
	linkedin    linkedin.Client
	concurrency int
	rps         float64
	calc        *cost.Calculator
}

func (s *enrichStage) Name() string { return StepEnrich.String() }

func enrichable(u model.User) bool {
	return u.Sources.Has(model.TagRanked) && u.ProfileURL != "" && u.Score() > 0
}

func (s *enrichStage) Run(ctx context.Context, st *State) (Delta, error) {
	cands := st.Records.Filter(enrichable)
	if len(cands) == 0 {
		return Delta{}, nil
	}

	items := fanOut(ctx, cands, s.concurrency, newLimiter(s.rps), func(ctx context.Context, u model.User) ItemResult {
		p, fetched, err := st.Profiles.Fetch(ctx, u.ProfileURL, s.linkedin)
		var usage model.TokenUsage
		if fetched {
			usage.Cost = s.calc.ProfileRequests(1)
		}
		if err != nil {
			return ItemResult{Usage: usage, Err: eris.Wrapf(err, "enrich: fetch %s", u.ProfileURL)}
		}
		if p == nil {
			return ItemResult{Usage: usage, Err: eris.Errorf("enrich: empty profile for %s", u.ProfileURL)}
		}
		return ItemResult{
			Usage: usage,
			User: model.User{
				Email:   u.Email,
				Profile: p,
				Sources: model.Sources{model.TagProfileFetched},
			},
		}
	})
	return Fold(s.Name(), items), nil
}
