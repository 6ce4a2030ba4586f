package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/shape"
)

// Stage is one step of the pipeline. Run reads the state and returns the
// changes it wants applied; it never mutates the state itself.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) (Delta, error)
}

// Delta is what a stage contributes to the run.
type Delta struct {
	Users  []model.User
	Traces []model.Trace
	// ClearProfile lists emails whose raw profile is dropped after Users
	// are applied.
	ClearProfile []string
	Candidates   int
	Usage        model.TokenUsage
}

// ItemResult is the outcome of one unit of per-record work. Exactly one of
// User and Err is meaningful.
type ItemResult struct {
	Email string
	User  model.User
	Usage model.TokenUsage
	Err   error
}

// StageError is a stage failure with an explicit trace kind.
type StageError struct {
	Kind model.TraceKind
	Err  error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// classify maps an error to the trace kind it is reported under.
func classify(err error) model.TraceKind {
	var se *StageError
	switch {
	case errors.As(err, &se):
		return se.Kind
	case shape.IsKind(err, shape.MalformedOutput):
		return model.TraceMalformedOutput
	case shape.IsKind(err, shape.SchemaViolation):
		return model.TraceSchemaViolation
	default:
		return model.TraceCollaboratorUnreachable
	}
}

func newTrace(stage string, kind model.TraceKind, email, msg string) model.Trace {
	return model.Trace{Stage: stage, Kind: kind, Email: email, Message: msg, At: time.Now().UTC()}
}

// Execute runs stage against st. A returned error or a panic becomes a
// delta with no records and a single trace; token usage already spent is
// kept.
func Execute(ctx context.Context, stage Stage, st *State) (d Delta) {
	name := stage.Name()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: stage panicked",
				zap.String("stage", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			d = Delta{Traces: []model.Trace{
				newTrace(name, model.TraceCollaboratorUnreachable, "", fmt.Sprintf("panic: %v", r)),
			}}
		}
	}()

	var err error
	d, err = stage.Run(ctx, st)
	if err != nil {
		return Delta{
			Candidates: d.Candidates,
			Usage:      d.Usage,
			Traces:     []model.Trace{newTrace(name, classify(err), "", err.Error())},
		}
	}
	return d
}

// Fold turns per-item results into a delta: one record per success and one
// trace, naming the email, per failure.
func Fold(stage string, items []ItemResult) Delta {
	d := Delta{Candidates: len(items)}
	for _, it := range items {
		d.Usage.Add(it.Usage)
		if it.Err != nil {
			d.Traces = append(d.Traces, newTrace(stage, classify(it.Err), it.Email, it.Err.Error()))
			continue
		}
		d.Users = append(d.Users, it.User)
	}
	return d
}

// newLimiter returns nil when rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// fanOut calls fn for every user with at most limit calls in flight.
// Results are stored by input index. A panic in fn fails only its item.
func fanOut(
	ctx context.Context,
	users []model.User,
	limit int,
	limiter *rate.Limiter,
	fn func(context.Context, model.User) ItemResult,
) []ItemResult {
	results := make([]ItemResult, len(users))
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range users {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = ItemResult{Email: u.Email, Err: eris.Errorf("panic: %v", r)}
				}
			}()
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = ItemResult{Email: u.Email, Err: eris.Wrap(err, "rate limiter")}
					return nil
				}
			}
			res := fn(ctx, u)
			res.Email = u.Email
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
