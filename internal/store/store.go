// Package store persists run history and the profile document cache. The
// per-run record store is never written here; only audit data and cached
// collaborator responses are.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

// ErrNotFound is returned when a run or stage does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the prospect pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.Request) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error

	// Profile cache, keyed by profile URL. A miss returns nil, nil.
	GetCachedProfile(ctx context.Context, profileURL string) ([]byte, error)
	SetCachedProfile(ctx context.Context, profileURL string, data []byte, ttl time.Duration) error
	DeleteExpiredProfiles(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// finalStatus maps a run result to the status it is stored under.
func finalStatus(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

func listLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}

func now() time.Time { return time.Now().UTC() }
