package pipeline

import (
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/records"
)

// Step is a position in the pipeline.
type Step int

const (
	StepDiscover Step = iota
	StepRank
	StepEnrich
	StepAnalyze
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepDiscover:
		return "discover"
	case StepRank:
		return "rank"
	case StepEnrich:
		return "enrich"
	case StepAnalyze:
		return "analyze"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// RunStatus is the persisted run status while the step is executing.
func (s Step) RunStatus() model.RunStatus {
	switch s {
	case StepDiscover:
		return model.RunStatusDiscovering
	case StepRank:
		return model.RunStatusRanking
	case StepEnrich:
		return model.RunStatusEnriching
	case StepAnalyze:
		return model.RunStatusAnalyzing
	default:
		return model.RunStatusComplete
	}
}

// NextStep returns the step after current given the records so far. A step
// that leaves nothing for its successor ends the run.
func NextStep(current Step, st *records.Store) Step {
	switch current {
	case StepDiscover:
		if st.Len() == 0 {
			return StepDone
		}
		return StepRank
	case StepRank:
		if st.CountTagged(model.TagRanked) == 0 {
			return StepDone
		}
		return StepEnrich
	case StepEnrich:
		if st.CountTagged(model.TagProfileFetched) == 0 {
			return StepDone
		}
		return StepAnalyze
	default:
		return StepDone
	}
}

// State is threaded through the stages of one run.
type State struct {
	Request model.Request
	Records *records.Store
	Traces  []model.Trace
	// Profiles is the run's profile cache. Nil disables caching.
	Profiles *ProfileCache
}

func newState(req model.Request) *State {
	return &State{Request: req, Records: records.New()}
}
