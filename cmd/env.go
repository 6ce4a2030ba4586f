package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dtb-digital/prospect-agent/internal/cost"
	"github.com/dtb-digital/prospect-agent/internal/events"
	"github.com/dtb-digital/prospect-agent/internal/llm"
	"github.com/dtb-digital/prospect-agent/internal/pipeline"
	"github.com/dtb-digital/prospect-agent/internal/store"
	"github.com/dtb-digital/prospect-agent/pkg/hunter"
	"github.com/dtb-digital/prospect-agent/pkg/linkedin"
)

// prospectEnv holds the clients and pipeline shared by the run and serve
// commands.
type prospectEnv struct {
	Store     store.Store
	Publisher events.Publisher
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *prospectEnv) Close() {
	if pe.Publisher != nil {
		if err := pe.Publisher.Close(); err != nil {
			zap.L().Warn("close publisher", zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline validates the config for mode and builds every collaborator
// the pipeline needs. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*prospectEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	prompts, err := pipeline.LoadPrompts(cfg.Pipeline.PromptsFile)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &prospectEnv{Store: st}

	pub, err := events.FromConfig(ctx, cfg.NATS)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Publisher = pub

	calc := cost.NewCalculator(cfg.Pricing.Rates())
	completer, err := llm.FromConfig(ctx, cfg, calc)
	if err != nil {
		env.Close()
		return nil, err
	}

	hunterClient := hunter.NewClient(cfg.Hunter.Key, hunter.WithBaseURL(cfg.Hunter.BaseURL))
	linkedinClient := linkedin.NewClient(cfg.LinkedIn.Key,
		linkedin.WithBaseURL(cfg.LinkedIn.BaseURL),
		linkedin.WithHost(cfg.LinkedIn.Host),
	)

	ttl := time.Duration(cfg.Profile.CacheTTLHours) * time.Hour
	env.Pipeline = pipeline.New(cfg, hunterClient, linkedinClient, completer,
		pipeline.WithStore(st),
		pipeline.WithPublisher(pub),
		pipeline.WithPrompts(prompts),
		pipeline.WithCalculator(calc),
		pipeline.WithProfileCache(pipeline.NewProfileCache(st, ttl)),
	)

	zap.L().Debug("pipeline initialized",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("events", cfg.NATS.URL != ""),
	)
	return env, nil
}
