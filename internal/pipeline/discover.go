package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/pkg/hunter"
)

const defaultPageSize = 50

// discoverStage pages through the contact directory for the domain.
type discoverStage struct {
	hunter   hunter.Client
	pageSize int
	calc     *cost.Calculator
}

func (s *discoverStage) Name() string { return StepDiscover.String() }

func (s *discoverStage) Run(ctx context.Context, st *State) (Delta, error) {
	limit := s.pageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	depth := max(st.Request.SearchDepth, 1)
	caser := cases.Title(language.Und)

	var d Delta
	offset, pages := 0, 0
	for page := 0; page < depth; page++ {
		resp, err := s.hunter.DomainSearch(ctx, hunter.DomainSearchRequest{
			Domain: st.Request.Domain,
			Offset: offset,
			Limit:  limit,
		})
		pages++
		if err != nil {
			d.Usage.Cost = s.calc.HunterRequests(pages)
			if page == 0 {
				return d, eris.Wrap(err, "discover: domain search")
			}
			// Keep the pages already read.
			d.Traces = append(d.Traces, newTrace(s.Name(), model.TraceCollaboratorUnreachable, "",
				fmt.Sprintf("discover: page %d: %v", page+1, err)))
			break
		}

		for _, e := range resp.Data.Emails {
			d.Users = append(d.Users, contactToUser(e, caser))
		}

		offset += limit
		if len(resp.Data.Emails) == 0 || (resp.Meta.Results > 0 && offset >= resp.Meta.Results) {
			break
		}
	}

	d.Candidates = len(d.Users)
	d.Usage.Cost = s.calc.HunterRequests(pages)
	return d, nil
}

// contactToUser maps a directory entry onto a new record.
func contactToUser(e hunter.Email, caser cases.Caser) model.User {
	return model.User{
		Email:       strings.TrimSpace(e.Value),
		FirstName:   normalizeName(deref(e.FirstName), caser),
		LastName:    normalizeName(deref(e.LastName), caser),
		RoleTitle:   strings.TrimSpace(deref(e.Position)),
		Confidence:  e.Confidence,
		ProfileURL:  strings.TrimSpace(deref(e.LinkedIn)),
		PhoneNumber: strings.TrimSpace(deref(e.PhoneNumber)),
		Department:  deref(e.Department),
		Seniority:   deref(e.Seniority),
		Sources:     model.Sources{model.TagDiscovered},
	}
}

// normalizeName title-cases names that arrive in a single case. Mixed-case
// names such as "McArthur" are kept as given.
func normalizeName(s string, caser cases.Caser) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		return caser.String(s)
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
