// Package events publishes run lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/dtb-digital/prospect-agent/internal/config"
	"github.com/dtb-digital/prospect-agent/internal/model"
)

// RunCompleted is emitted once per finished run.
type RunCompleted struct {
	RunID       string          `json:"run_id"`
	Domain      string          `json:"domain"`
	TargetRole  string          `json:"target_role"`
	Status      model.RunStatus `json:"status"`
	Users       int             `json:"users"`
	Analyzed    int             `json:"analyzed"`
	Failures    int             `json:"failures"`
	TotalTokens int             `json:"total_tokens"`
	Cost        float64         `json:"cost"`
	CompletedAt time.Time       `json:"completed_at"`
}

// NewRunCompleted summarizes a pipeline result.
func NewRunCompleted(res *model.Result, status model.RunStatus) RunCompleted {
	failures := 0
	for _, tr := range res.Traces {
		if tr.IsFailure() {
			failures++
		}
	}
	return RunCompleted{
		RunID:       res.RunID,
		Domain:      res.Request.Domain,
		TargetRole:  res.Request.TargetRole,
		Status:      status,
		Users:       len(res.Users),
		Analyzed:    len(res.Analyzed()),
		Failures:    failures,
		TotalTokens: res.Usage.Total(),
		Cost:        res.Usage.Cost,
		CompletedAt: time.Now().UTC(),
	}
}

// Publisher delivers run events.
type Publisher interface {
	Publish(ctx context.Context, ev RunCompleted) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, RunCompleted) error { return nil }
func (Nop) Close() error                                { return nil }

// FromConfig returns a NATS publisher when a URL is configured and Nop otherwise.
func FromConfig(ctx context.Context, cfg config.NATSConfig) (Publisher, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}
	return NewNATSPublisher(ctx, cfg.URL, cfg.Subject)
}
