// Package fake implements a download backend that fabricates progress
// instead of fetching anything. It is used in tests, demos and dry runs of
// the surrounding task machinery.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
)

const defaultStepDelay = 300 * time.Millisecond

// EngineConfig is the configuration for the fake engine.
type EngineConfig struct {
	Repository storage.Repository
	// StepDelay is the pause between fabricated progress steps.
	StepDelay time.Duration
	Logger    log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.StepDelay <= 0 {
		c.StepDelay = defaultStepDelay
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Fake"})
	return nil
}

// Engine is a fake implementation of engine.Engine. A started task reports
// half of its tiles done, then all of them, and completes. Nothing is
// written to disk.
type Engine struct {
	repo      storage.Repository
	stepDelay time.Duration
	logger    log.Logger

	mu      sync.Mutex
	runs    map[string]*taskRun
	subs    map[string]map[int]chan model.ProgressEvent
	last    map[string]model.ProgressEvent
	nextSub int
}

type taskRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new fake engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		repo:      cfg.Repository,
		stepDelay: cfg.StepDelay,
		logger:    cfg.Logger,
		runs:      map[string]*taskRun{},
		subs:      map[string]map[int]chan model.ProgressEvent{},
		last:      map[string]model.ProgressEvent{},
	}, nil
}

// Start begins a fabricated download run for the task.
func (e *Engine) Start(ctx context.Context, taskID string) error {
	task, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	e.mu.Lock()
	if _, ok := e.runs[taskID]; ok {
		e.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &taskRun{cancel: cancel, done: make(chan struct{})}
	e.runs[taskID] = run
	e.mu.Unlock()

	go e.run(runCtx, run, *task)

	e.logger.Infof("Started fake download run for task %s", taskID)
	return nil
}

func (e *Engine) run(ctx context.Context, run *taskRun, task model.Task) {
	defer close(run.done)
	defer e.endRun(task.ID)

	total := task.TotalTiles
	lastZoom := 0
	if len(task.Config.Zooms) > 0 {
		lastZoom = task.Config.Zooms[len(task.Config.Zooms)-1]
	}
	throughput := float64(total) / (2 * e.stepDelay.Seconds())

	steps := []model.ProgressEvent{
		{
			TaskID:      task.ID,
			Completed:   total / 2,
			Total:       total,
			Throughput:  throughput,
			CurrentZoom: firstZoom(task.Config.Zooms),
			Status:      model.TaskStatusDownloading,
		},
		{
			TaskID:      task.ID,
			Completed:   total,
			Total:       total,
			Throughput:  throughput,
			CurrentZoom: lastZoom,
			Status:      model.TaskStatusCompleted,
		},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.stepDelay):
		}

		step.At = time.Now().UTC()
		e.emit(step)
	}
}

func firstZoom(zooms []int) int {
	if len(zooms) == 0 {
		return 0
	}
	return zooms[0]
}

// Pause stops the fabricated run.
func (e *Engine) Pause(ctx context.Context, taskID string) error {
	return e.stopRun(ctx, taskID)
}

// Cancel stops the fabricated run.
func (e *Engine) Cancel(ctx context.Context, taskID string) error {
	return e.stopRun(ctx, taskID)
}

func (e *Engine) stopRun(ctx context.Context, taskID string) error {
	e.mu.Lock()
	run, ok := e.runs[taskID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	run.cancel()
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetParallelism is accepted and ignored, the fake has no workers.
func (e *Engine) SetParallelism(ctx context.Context, taskID string, workers int) error {
	return nil
}

// RetryFailed pretends to flip the task's failed tiles and reports the task
// record's failed count.
func (e *Engine) RetryFailed(ctx context.Context, taskID string) (int64, error) {
	task, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("could not get task: %w", err)
	}

	e.mu.Lock()
	delete(e.last, taskID)
	e.mu.Unlock()

	return task.FailedTiles, nil
}

// DeleteOutput is a no-op, the fake never writes output.
func (e *Engine) DeleteOutput(ctx context.Context, taskID string) error {
	return nil
}

// Subscribe returns a live stream of progress events for the task.
func (e *Engine) Subscribe(taskID string) (<-chan model.ProgressEvent, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan model.ProgressEvent, 16)
	id := e.nextSub
	e.nextSub++

	if e.subs[taskID] == nil {
		e.subs[taskID] = map[int]chan model.ProgressEvent{}
	}
	e.subs[taskID][id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[taskID][id]; ok {
			delete(e.subs[taskID], id)
			close(sub)
		}
	}

	return ch, cancel
}

// Snapshot returns the most recent progress event of the task, if any.
func (e *Engine) Snapshot(taskID string) (model.ProgressEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := e.last[taskID]
	return ev, ok
}

func (e *Engine) emit(ev model.ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.last[ev.TaskID] = ev
	for _, ch := range e.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) endRun(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.runs, taskID)
	for id, ch := range e.subs[taskID] {
		delete(e.subs[taskID], id)
		close(ch)
	}
}
