// Package tracker merges progress reports from download backends into the
// persisted task records. It is the single write path for progress: live
// events and polled snapshots go through the same merge, so the stored
// counters never move backwards no matter how reports are delivered.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
)

const defaultPollInterval = 2 * time.Second

// Config is the configuration for the tracker.
type Config struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tracker.Tracker"})
	return nil
}

// Tracker applies progress events to task records.
type Tracker struct {
	repo   storage.Repository
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a new tracker.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

// Apply merges one progress event into its task record. Events carry
// cumulative counts, so applying is monotonic: stale or duplicated reports
// can never push a counter backwards, and re-applying the same event is a
// no-op. Events for unknown tasks are dropped.
func (t *Tracker) Apply(ctx context.Context, ev model.ProgressEvent) error {
	lock := t.lockFor(ev.TaskID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := t.repo.GetTask(ctx, ev.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			t.logger.Debugf("Dropped progress event for unknown task %s", ev.TaskID)
			return nil
		}
		return fmt.Errorf("could not get task: %w", err)
	}

	if rec.Status.IsTerminal() {
		t.logger.Debugf("Ignored progress event for terminal task %s", ev.TaskID)
		return nil
	}

	changed := false

	// The total was frozen at creation. A backend reporting a different
	// one is a bug worth surfacing, but never rewrites the record.
	if ev.Total > 0 && ev.Total != rec.TotalTiles {
		t.logger.Warningf("Task %s: backend reports total %d, record has %d, keeping the record", ev.TaskID, ev.Total, rec.TotalTiles)
	}

	if ev.Completed > rec.CompletedTiles {
		rec.CompletedTiles = ev.Completed
		changed = true
	}
	if ev.Failed > rec.FailedTiles {
		rec.FailedTiles = ev.Failed
		changed = true
	}

	// Counts may never exceed the frozen total. Completed tiles are
	// verified writes, so the failed count absorbs the clamp.
	if rec.CompletedTiles > rec.TotalTiles {
		t.logger.Warningf("Task %s: completed count %d exceeds total %d, clamping", ev.TaskID, rec.CompletedTiles, rec.TotalTiles)
		rec.CompletedTiles = rec.TotalTiles
	}
	if rec.CompletedTiles+rec.FailedTiles > rec.TotalTiles {
		t.logger.Warningf("Task %s: counts exceed total %d, clamping failed", ev.TaskID, rec.TotalTiles)
		rec.FailedTiles = rec.TotalTiles - rec.CompletedTiles
	}

	if ev.Status == model.TaskStatusDownloading && ev.CurrentZoom != rec.CurrentZoom {
		rec.CurrentZoom = ev.CurrentZoom
		changed = true
	}

	// Throughput is display state, it rides along without forcing a write.
	rec.Throughput = ev.Throughput

	if ev.Status == model.TaskStatusCompleted || ev.Status == model.TaskStatusFailed {
		if rec.Status == model.TaskStatusDownloading {
			t.finalize(rec, ev)
			changed = true
		} else {
			t.logger.Debugf("Ignored %s report for task %s in status %s", ev.Status, ev.TaskID, rec.Status)
		}
	}

	if !changed {
		return nil
	}

	rec.UpdatedAt = time.Now().UTC()
	if err := t.repo.UpdateTask(ctx, *rec); err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	return nil
}

// finalize moves a downloading record to the terminal status the backend
// reported. Completion with failed tiles left over is still completion, the
// failed subset stays retryable.
func (t *Tracker) finalize(rec *model.Task, ev model.ProgressEvent) {
	rec.Status = ev.Status

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec.CompletedAt = &at

	if ev.Status == model.TaskStatusFailed {
		rec.ErrorMessage = ev.Message
		if rec.ErrorMessage == "" {
			rec.ErrorMessage = "download failed"
		}
	}
}

// Follow streams the progress of a running task into its record until the
// task reaches a terminal status, its run stops, or ctx ends. Live events
// and periodic snapshot polls feed the same Apply merge.
func (t *Tracker) Follow(ctx context.Context, eng engine.Engine, taskID string, pollEvery time.Duration) (*model.Task, error) {
	if pollEvery <= 0 {
		pollEvery = defaultPollInterval
	}

	events, cancel := eng.Subscribe(taskID)
	defer cancel()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		task, err := t.repo.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		// The run ended without a terminal status: paused, nothing more
		// will arrive.
		if events == nil && task.Status != model.TaskStatusDownloading {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return task, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := t.Apply(ctx, ev); err != nil {
				return nil, err
			}

		case <-ticker.C:
			if ev, ok := eng.Snapshot(taskID); ok {
				if err := t.Apply(ctx, ev); err != nil {
					return nil, err
				}
			}
		}
	}
}

func (t *Tracker) lockFor(taskID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[taskID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[taskID] = lock
	}
	return lock
}
