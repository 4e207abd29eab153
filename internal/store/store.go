// Package store persists the render run history.
package store

import (
	"context"

	"github.com/me/mandelzoom/pkg/model"
)

// Store defines the persistence layer for render runs.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	// GetRun returns nil, nil when the run does not exist.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
	// UpdateRun stores the run's new state and results. The state change
	// must be a valid transition from the stored state, and a COMPLETED or
	// FAILED run can no longer be updated.
	UpdateRun(ctx context.Context, run *model.Run) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
