package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dtb-digital/prospect-agent/internal/resilience"
)

// Resilient retries transient provider failures and stops calling a
// provider that keeps failing.
type Resilient struct {
	next     Completer
	provider string
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

// NewResilient wraps next with retry and a circuit breaker.
func NewResilient(next Completer, provider string, retry resilience.RetryConfig, breaker resilience.CircuitBreakerConfig) *Resilient {
	breaker.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("llm: circuit breaker state change",
			zap.String("provider", provider),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &Resilient{
		next:     next,
		provider: provider,
		retry:    retry,
		breaker:  resilience.NewCircuitBreaker(breaker),
	}
}

// Complete implements Completer.
func (r *Resilient) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	cfg := r.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(r.provider, p.Operation)
	}
	c, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Completion, error) {
		return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (*Completion, error) {
			return r.next.Complete(ctx, p)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "llm: %s %s", r.provider, p.Operation)
	}
	return c, nil
}
