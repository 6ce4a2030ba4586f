package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

func TestNextStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current Step
		users   []model.User
		want    Step
	}{
		{"discover found nothing", StepDiscover, nil, StepDone},
		{"discover found contacts", StepDiscover, []model.User{discovered("a@acme.com", "", "")}, StepRank},
		{"rank selected nobody", StepRank, []model.User{discovered("a@acme.com", "CTO", "")}, StepDone},
		{"rank selected someone", StepRank, []model.User{ranked("a@acme.com", "", 0.5)}, StepEnrich},
		{"enrich fetched nothing", StepEnrich, []model.User{ranked("a@acme.com", "u", 0.5)}, StepDone},
		{"enrich fetched a profile", StepEnrich, []model.User{fetched("a@acme.com", nil)}, StepAnalyze},
		{"analyze is last", StepAnalyze, []model.User{fetched("a@acme.com", nil)}, StepDone},
		{"done stays done", StepDone, nil, StepDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := stateWith(tt.users...)
			assert.Equal(t, tt.want, NextStep(tt.current, st.Records))
		})
	}
}

func TestStep_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "discover", StepDiscover.String())
	assert.Equal(t, "analyze", StepAnalyze.String())
	assert.Equal(t, "done", StepDone.String())
	assert.Equal(t, "unknown", Step(42).String())
	assert.Equal(t, model.RunStatusEnriching, StepEnrich.RunStatus())
}
