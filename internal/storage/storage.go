package storage

import (
	"context"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

// Repository is the interface for task persistence.
type Repository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetTaskByName(ctx context.Context, name string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// TileStatus is the per-tile download state kept in the journal.
type TileStatus string

const (
	// TileStatusPending marks a tile not fetched yet.
	TileStatusPending TileStatus = "pending"
	// TileStatusCompleted marks a tile fetched and written to the container.
	TileStatusCompleted TileStatus = "completed"
	// TileStatusFailed marks a tile that exhausted its retry budget.
	TileStatusFailed TileStatus = "failed"
)

// TileCounts aggregates the journal state of one task.
type TileCounts struct {
	Pending   int64
	Completed int64
	Failed    int64
}

// Total returns the number of journaled tiles in any state.
func (c TileCounts) Total() int64 { return c.Pending + c.Completed + c.Failed }

// TileJournal is the interface for per-tile download bookkeeping. It is what
// makes pause/resume and failed-tile retries cheap: the download backend
// always asks it what is left instead of keeping that state in memory.
type TileJournal interface {
	// SeedTiles records every tile of the given ranges as pending. Already
	// journaled tiles are left untouched, so reseeding is harmless.
	SeedTiles(ctx context.Context, taskID string, ranges []tile.Range) error
	// PendingTiles returns up to limit tiles still waiting to be fetched.
	PendingTiles(ctx context.Context, taskID string, limit int) ([]tile.Coord, error)
	MarkTile(ctx context.Context, taskID string, c tile.Coord, status TileStatus) error
	// ResetFailedTiles flips every failed tile back to pending and returns
	// how many were flipped.
	ResetFailedTiles(ctx context.Context, taskID string) (int64, error)
	TileCounts(ctx context.Context, taskID string) (TileCounts, error)
	DeleteTiles(ctx context.Context, taskID string) error
}
