// Package httpfetch implements the real download backend: it fetches tiles
// over HTTP from the task's platform and writes them into the task's output
// container, journaling every tile so runs can stop and resume at any point.
package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/slok/tilegrab/internal/container"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tile"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultRetryBaseWait = time.Second
	eventBuffer          = 64
)

// EngineConfig is the configuration for the HTTP fetch engine.
type EngineConfig struct {
	Repository storage.Repository
	Journal    storage.TileJournal
	Registry   *platform.Registry

	// Client overrides the tuned default HTTP client. Mostly for tests.
	Client   *http.Client
	ProxyURL string

	// RateLimit caps tile requests per second across all running tasks.
	// Zero means unlimited.
	RateLimit float64

	UserAgent string
	// RetryBaseWait is the first retry wait, doubling per attempt. Tests
	// shrink it to keep retry paths fast.
	RetryBaseWait time.Duration

	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Journal == nil {
		return fmt.Errorf("tile journal is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("platform registry is required")
	}

	if c.Client == nil {
		client, err := newHTTPClient(c.ProxyURL)
		if err != nil {
			return err
		}
		c.Client = client
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RetryBaseWait <= 0 {
		c.RetryBaseWait = defaultRetryBaseWait
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.HTTPFetch"})
	return nil
}

// Engine is an HTTP implementation of engine.Engine.
type Engine struct {
	repo          storage.Repository
	journal       storage.TileJournal
	registry      *platform.Registry
	client        *http.Client
	limiter       *rate.Limiter
	userAgent     string
	retryBaseWait time.Duration
	logger        log.Logger

	mu      sync.Mutex
	runs    map[string]*taskRun
	subs    map[string]map[int]chan model.ProgressEvent
	last    map[string]model.ProgressEvent
	nextSub int
}

// taskRun is the live state of one running task.
type taskRun struct {
	cancel  context.CancelFunc
	done    chan struct{}
	workers atomic.Int64
}

// NewEngine creates a new HTTP fetch engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Engine{
		repo:          cfg.Repository,
		journal:       cfg.Journal,
		registry:      cfg.Registry,
		client:        cfg.Client,
		limiter:       limiter,
		userAgent:     cfg.UserAgent,
		retryBaseWait: cfg.RetryBaseWait,
		logger:        cfg.Logger,
		runs:          map[string]*taskRun{},
		subs:          map[string]map[int]chan model.ProgressEvent{},
		last:          map[string]model.ProgressEvent{},
	}, nil
}

// Start begins or resumes fetching tiles for the task.
func (e *Engine) Start(ctx context.Context, taskID string) error {
	task, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if err := e.seedIfNeeded(ctx, task); err != nil {
		return err
	}

	writer, err := container.NewWriter(task.Config.Container, task.Config.OutputPath)
	if err != nil {
		return fmt.Errorf("could not open output container: %w", err)
	}

	e.mu.Lock()
	if _, ok := e.runs[taskID]; ok {
		e.mu.Unlock()
		writer.Close()
		return nil
	}

	// The run's context is detached from the caller's: the download keeps
	// going after Start returns, until paused or finished.
	runCtx, cancel := context.WithCancel(context.Background())
	run := &taskRun{cancel: cancel, done: make(chan struct{})}
	run.workers.Store(int64(task.Config.Parallelism))
	e.runs[taskID] = run
	e.mu.Unlock()

	go e.run(runCtx, run, *task, writer)

	e.logger.Infof("Started download run for task %s", taskID)
	return nil
}

// seedIfNeeded journals the task's full tile set on its first start.
func (e *Engine) seedIfNeeded(ctx context.Context, task *model.Task) error {
	counts, err := e.journal.TileCounts(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("could not read journal: %w", err)
	}
	if counts.Total() > 0 {
		return nil
	}

	ranges := make([]tile.Range, 0, len(task.Config.Zooms))
	for _, z := range task.Config.Zooms {
		ranges = append(ranges, tile.RangeForBounds(task.Config.Bounds, z))
	}

	if err := e.journal.SeedTiles(ctx, task.ID, ranges); err != nil {
		return fmt.Errorf("could not seed journal: %w", err)
	}

	return nil
}

func (e *Engine) run(ctx context.Context, run *taskRun, task model.Task, writer container.Writer) {
	// endRun must finish before done closes so a pause immediately followed
	// by a start cannot observe the old run.
	defer close(run.done)
	defer e.endRun(task.ID)
	defer writer.Close()

	logger := e.logger.WithValues(log.Kv{"task-id": task.ID})

	p, err := e.registry.Get(task.Config.Platform)
	if err != nil {
		e.emitFailed(task.ID, err)
		return
	}

	var throughput float64
	for {
		if ctx.Err() != nil {
			return
		}

		workers := int(run.workers.Load())
		if workers < 1 {
			workers = 1
		}

		coords, err := e.journal.PendingTiles(ctx, task.ID, workers*2)
		if err != nil {
			e.emitFailed(task.ID, fmt.Errorf("could not read journal: %w", err))
			return
		}
		if len(coords) == 0 {
			e.finish(ctx, task.ID, writer, logger)
			return
		}

		batchStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, c := range coords {
			c := c
			g.Go(func() error { return e.fetchOne(gctx, p, task, c, writer, logger) })
		}

		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				// Paused or cancelled: stop quietly, the journal keeps
				// whatever was marked so far.
				return
			}
			e.emitFailed(task.ID, err)
			return
		}

		counts, err := e.journal.TileCounts(ctx, task.ID)
		if err != nil {
			e.emitFailed(task.ID, fmt.Errorf("could not read journal: %w", err))
			return
		}

		instant := float64(len(coords)) / time.Since(batchStart).Seconds()
		if throughput == 0 {
			throughput = instant
		} else {
			throughput = 0.7*throughput + 0.3*instant
		}

		e.emit(model.ProgressEvent{
			TaskID:      task.ID,
			Completed:   counts.Completed,
			Failed:      counts.Failed,
			Total:       counts.Total(),
			Throughput:  throughput,
			CurrentZoom: coords[len(coords)-1].Z,
			Status:      model.TaskStatusDownloading,
			At:          time.Now().UTC(),
		})
	}
}

// fetchOne downloads a single tile and journals the outcome. A tile that
// exhausts its retry budget is marked failed and never aborts the run;
// journal or container errors do.
func (e *Engine) fetchOne(ctx context.Context, p model.Platform, task model.Task, c tile.Coord, writer container.Writer, logger log.Logger) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil
	}

	data, err := e.fetchTile(ctx, p, task.Config, c)
	if err != nil {
		if ctx.Err() != nil {
			// Run is stopping, the tile stays pending for the next resume.
			return nil
		}

		logger.Debugf("Tile %d/%d/%d failed: %s", c.Z, c.X, c.Y, err)
		if err := e.journal.MarkTile(ctx, task.ID, c, storage.TileStatusFailed); err != nil {
			return fmt.Errorf("could not journal tile: %w", err)
		}
		return nil
	}

	if err := writer.Put(ctx, c, data); err != nil {
		return fmt.Errorf("could not write tile: %w", err)
	}
	if err := e.journal.MarkTile(ctx, task.ID, c, storage.TileStatusCompleted); err != nil {
		return fmt.Errorf("could not journal tile: %w", err)
	}

	return nil
}

// finish seals the container and emits the terminal completed event. A task
// completes even when some tiles failed, the failed subset stays retryable.
func (e *Engine) finish(ctx context.Context, taskID string, writer container.Writer, logger log.Logger) {
	counts, err := e.journal.TileCounts(ctx, taskID)
	if err != nil {
		e.emitFailed(taskID, fmt.Errorf("could not read journal: %w", err))
		return
	}

	if err := writer.Finalize(ctx); err != nil {
		e.emitFailed(taskID, fmt.Errorf("could not finalize container: %w", err))
		return
	}

	logger.Infof("Download run finished: %d completed, %d failed", counts.Completed, counts.Failed)

	e.emit(model.ProgressEvent{
		TaskID:    taskID,
		Completed: counts.Completed,
		Failed:    counts.Failed,
		Total:     counts.Total(),
		Status:    model.TaskStatusCompleted,
		At:        time.Now().UTC(),
	})
}

// Pause stops the task's run and waits for its workers to drain.
func (e *Engine) Pause(ctx context.Context, taskID string) error {
	return e.stopRun(ctx, taskID)
}

// Cancel stops the task's run. The journal and partial output are kept so
// removal can clean them up.
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

// SetParallelism adjusts the worker count of the task's run. The new value
// takes effect on the next fetch batch.
func (e *Engine) SetParallelism(ctx context.Context, taskID string, workers int) error {
	e.mu.Lock()
	run, ok := e.runs[taskID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	run.workers.Store(int64(workers))
	e.logger.Debugf("Set parallelism of task %s to %d", taskID, workers)
	return nil
}

// RetryFailed flips the task's failed tiles back to pending. The last
// progress snapshot is dropped so stale failed counts cannot resurface
// after the reset.
func (e *Engine) RetryFailed(ctx context.Context, taskID string) (int64, error) {
	n, err := e.journal.ResetFailedTiles(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("could not reset failed tiles: %w", err)
	}

	e.mu.Lock()
	delete(e.last, taskID)
	e.mu.Unlock()

	return n, nil
}

// DeleteOutput removes the task's output container from disk.
func (e *Engine) DeleteOutput(ctx context.Context, taskID string) error {
	task, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if err := container.Remove(task.Config.Container, task.Config.OutputPath); err != nil {
		return err
	}

	e.logger.Infof("Deleted output of task %s", taskID)
	return nil
}

// Subscribe returns a live stream of progress events for the task.
func (e *Engine) Subscribe(taskID string) (<-chan model.ProgressEvent, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan model.ProgressEvent, eventBuffer)
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
		// Slow subscribers lose events instead of blocking the run; they
		// recover through polling the snapshot.
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) emitFailed(taskID string, err error) {
	e.logger.WithValues(log.Kv{"task-id": taskID}).Errorf("Download run failed: %s", err)

	counts, countsErr := e.journal.TileCounts(context.Background(), taskID)
	ev := model.ProgressEvent{
		TaskID:  taskID,
		Status:  model.TaskStatusFailed,
		Message: err.Error(),
		At:      time.Now().UTC(),
	}
	if countsErr == nil {
		ev.Completed = counts.Completed
		ev.Failed = counts.Failed
		ev.Total = counts.Total()
	}

	e.emit(ev)
}

// endRun drops the run and closes its subscriber channels so followers see
// the stream end.
func (e *Engine) endRun(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.runs, taskID)
	for id, ch := range e.subs[taskID] {
		delete(e.subs[taskID], id)
		close(ch)
	}
}
