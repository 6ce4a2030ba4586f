// Package pipeline runs the prospect enrichment stages for one domain:
// discover contacts, rank them against a target role, fetch profiles for the
// best matches and analyze each profile.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dtb-digital/prospect-agent/internal/config"
	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/events"
	"github.com/dtb-digital/prospect-agent/internal/llm"
	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/store"
	"github.com/dtb-digital/prospect-agent/pkg/hunter"
	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

// Pipeline orchestrates the Discover, Rank, Enrich and Analyze stages.
type Pipeline struct {
	cfg       *config.Config
	hunter    hunter.Client
	linkedin  linkedin.Client
	llm       llm.Completer
	store     store.Store
	events    events.Publisher
	prompts   *Prompts
	profiles  *ProfileCache
	costCalc  *cost.Calculator
	cacheSet  bool
	stages    map[Step]Stage
	stageWait time.Duration
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithStore persists runs and stages and backs the profile cache.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPublisher emits a RunCompleted event after each run.
func WithPublisher(e events.Publisher) Option {
	return func(p *Pipeline) { p.events = e }
}

// WithPrompts replaces the built-in prompts.
func WithPrompts(pr *Prompts) Option {
	return func(p *Pipeline) { p.prompts = pr }
}

// WithProfileCache sets the profile cache. A nil cache disables caching.
func WithProfileCache(c *ProfileCache) Option {
	return func(p *Pipeline) {
		p.profiles = c
		p.cacheSet = true
	}
}

// WithCalculator sets the cost calculator.
func WithCalculator(c *cost.Calculator) Option {
	return func(p *Pipeline) { p.costCalc = c }
}

// New creates a Pipeline. The store and publisher are optional.
func New(
	cfg *config.Config,
	hunterClient hunter.Client,
	linkedinClient linkedin.Client,
	completer llm.Completer,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		hunter:   hunterClient,
		linkedin: linkedinClient,
		llm:      completer,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.prompts == nil {
		p.prompts = DefaultPrompts()
	}
	if p.costCalc == nil {
		p.costCalc = cost.NewCalculator(cfg.Pricing.Rates())
	}
	if !p.cacheSet {
		ttl := time.Duration(cfg.Profile.CacheTTLHours) * time.Hour
		p.profiles = NewProfileCache(p.store, ttl)
	}
	if p.events == nil {
		p.events = events.Nop{}
	}
	p.stageWait = time.Duration(cfg.Pipeline.StageTimeoutSecs) * time.Second

	p.stages = map[Step]Stage{
		StepDiscover: &discoverStage{
			hunter:   p.hunter,
			pageSize: cfg.Hunter.PageSize,
			calc:     p.costCalc,
		},
		StepRank: &rankStage{
			llm:              p.llm,
			prompts:          p.prompts,
			requireRoleTitle: cfg.Pipeline.RequireRoleTitle,
			enforceCap:       cfg.Pipeline.EnforceRankCap,
		},
		StepEnrich: &enrichStage{
			linkedin:    p.linkedin,
			concurrency: cfg.Pipeline.MaxConcurrency,
			rps:         cfg.Pipeline.RateLimitRPS,
			calc:        p.costCalc,
		},
		StepAnalyze: &analyzeStage{
			llm:         p.llm,
			prompts:     p.prompts,
			concurrency: cfg.Pipeline.MaxConcurrency,
			rps:         cfg.Pipeline.RateLimitRPS,
		},
	}
	return p
}

// Run executes the pipeline for one request. The only error is an invalid
// request; collaborator and model failures are reported as traces on the
// result.
func (p *Pipeline) Run(ctx context.Context, req model.Request) (*model.Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid request")
	}

	log := zap.L().With(zap.String("domain", req.Domain), zap.String("role", req.TargetRole))
	log.Info("pipeline: starting run")
	start := time.Now()

	res := &model.Result{Request: req, RunID: p.createRun(ctx, log, req)}
	st := newState(req)
	st.Profiles = p.profiles.forRun()

	for step := StepDiscover; step != StepDone; {
		p.setStatus(ctx, log, res.RunID, step.RunStatus())

		sr, d := p.runStage(ctx, log, res.RunID, step, st)
		res.Stages = append(res.Stages, sr)
		res.Usage.Add(d.Usage)

		next := NextStep(step, st.Records)
		if next == StepDone && step != StepAnalyze {
			st.Traces = append(st.Traces, newTrace(step.String(), model.TraceEmptyResultSet, "",
				"no records eligible for "+(step+1).String()))
			log.Info("pipeline: stopping early", zap.String("after", step.String()))
		}
		step = next
	}

	res.Users = st.Records.Users()
	res.Traces = st.Traces

	log.Info("pipeline: run complete",
		zap.String("run_id", res.RunID),
		zap.Int("users", len(res.Users)),
		zap.Int("analyzed", len(res.Analyzed())),
		zap.Int("traces", len(res.Traces)),
		zap.Int("tokens", res.Usage.Total()),
		zap.Float64("cost_usd", res.Usage.Cost),
		zap.Duration("elapsed", time.Since(start)),
	)

	p.finish(ctx, log, res)
	return res, nil
}

// runStage executes one stage, applies its delta and records the outcome.
func (p *Pipeline) runStage(ctx context.Context, log *zap.Logger, runID string, step Step, st *State) (model.StageResult, Delta) {
	stage := p.stages[step]
	name := stage.Name()
	log = log.With(zap.String("stage", name))

	var row *model.RunStage
	if p.store != nil {
		wctx, cancel := persistCtx(ctx)
		var err error
		row, err = p.store.CreateStage(wctx, runID, name)
		cancel()
		if err != nil {
			log.Warn("pipeline: failed to create stage", zap.Error(err))
		}
	}

	sctx := ctx
	if p.stageWait > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, p.stageWait)
		defer cancel()
	}

	began := time.Now()
	d := Execute(sctx, stage, st)
	duration := time.Since(began).Milliseconds()

	skipped := st.Records.Apply(d.Users...)
	for _, email := range d.ClearProfile {
		st.Records.ClearProfile(email)
	}
	st.Traces = append(st.Traces, d.Traces...)

	sr := model.StageResult{
		Name:       name,
		Duration:   duration,
		Candidates: d.Candidates,
		Records:    len(d.Users) - skipped,
		TokenUsage: d.Usage,
	}
	for _, tr := range d.Traces {
		if tr.IsFailure() {
			if sr.Failures == 0 {
				sr.Error = tr.Message
			}
			sr.Failures++
		}
	}
	switch {
	case sr.Failures == 0:
		sr.Status = model.StageStatusComplete
	case sr.Records > 0:
		sr.Status = model.StageStatusPartial
	default:
		sr.Status = model.StageStatusFailed
	}

	fields := []zap.Field{
		zap.String("status", string(sr.Status)),
		zap.Int("candidates", sr.Candidates),
		zap.Int("records", sr.Records),
		zap.Int("failures", sr.Failures),
		zap.Int64("duration_ms", duration),
	}
	if sr.Status == model.StageStatusFailed {
		log.Warn("pipeline: stage failed", append(fields, zap.String("error", sr.Error))...)
	} else {
		log.Info("pipeline: stage complete", fields...)
	}

	if row != nil {
		wctx, cancel := persistCtx(ctx)
		defer cancel()
		if err := p.store.CompleteStage(wctx, row.ID, &sr); err != nil {
			log.Warn("pipeline: failed to complete stage", zap.Error(err))
		}
	}
	return sr, d
}

// persistTimeout bounds each bookkeeping write.
const persistTimeout = 10 * time.Second

// persistCtx detaches store and event writes from the run's cancellation.
func persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (p *Pipeline) createRun(ctx context.Context, log *zap.Logger, req model.Request) string {
	if p.store != nil {
		wctx, cancel := persistCtx(ctx)
		defer cancel()
		run, err := p.store.CreateRun(wctx, req)
		if err == nil {
			return run.ID
		}
		log.Warn("pipeline: failed to create run", zap.Error(err))
	}
	return uuid.New().String()
}

func (p *Pipeline) setStatus(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus) {
	if p.store == nil {
		return
	}
	wctx, cancel := persistCtx(ctx)
	defer cancel()
	if err := p.store.UpdateRunStatus(wctx, runID, status); err != nil {
		log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}

// finish persists the result and announces the run. Failures are logged
// only. It runs even when the run's own deadline has passed.
func (p *Pipeline) finish(ctx context.Context, log *zap.Logger, res *model.Result) {
	ctx, cancel := persistCtx(ctx)
	defer cancel()

	if p.store != nil {
		if err := p.store.UpdateRunResult(ctx, res.RunID, res.RunResult()); err != nil {
			log.Warn("pipeline: failed to save result", zap.Error(err))
		}
	}
	if err := p.events.Publish(ctx, events.NewRunCompleted(res, model.RunStatusComplete)); err != nil {
		log.Warn("pipeline: failed to publish run event", zap.Error(err))
	}
}
