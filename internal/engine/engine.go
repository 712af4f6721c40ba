package engine

import (
	"context"

	"github.com/slok/tilegrab/internal/model"
)

// Engine is the interface for tile download backends. An engine owns the
// fetch loop of every running task; everything else (task records, status
// transitions) belongs to the application layer on top of it.
type Engine interface {
	// Start begins or resumes fetching tiles for the task. Starting a task
	// whose run is already active is a no-op.
	Start(ctx context.Context, taskID string) error

	// Pause stops the task's run and returns once its workers have drained.
	Pause(ctx context.Context, taskID string) error

	// Cancel stops the task's run like Pause. The tile journal is kept so a
	// later delete can account for what was written.
	Cancel(ctx context.Context, taskID string) error

	// SetParallelism adjusts the worker count of a running task. Advisory:
	// the new value applies from the next fetch batch.
	SetParallelism(ctx context.Context, taskID string, workers int) error

	// RetryFailed flips the task's failed tiles back to pending and returns
	// how many were flipped. It never starts the run by itself.
	RetryFailed(ctx context.Context, taskID string) (int64, error)

	// DeleteOutput removes the task's output container from disk.
	DeleteOutput(ctx context.Context, taskID string) error

	// Subscribe returns a live stream of progress events for the task. The
	// channel is closed when the task's run ends, and the returned cancel
	// func must be called to release the subscription.
	Subscribe(taskID string) (<-chan model.ProgressEvent, func())

	// Snapshot returns the most recent progress event of the task, if any.
	// Snapshots let pollers and event consumers share one merge path.
	Snapshot(taskID string) (model.ProgressEvent, bool)
}
