package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tile"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository and
// storage.TileJournal. State is lost on process exit, so it is only useful
// for tests and throwaway runs.
type Repository struct {
	tasks  map[string]model.Task
	tiles  map[string]map[tile.Coord]storage.TileStatus
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:  make(map[string]model.Task),
		tiles:  make(map[string]map[tile.Coord]storage.TileStatus),
		logger: cfg.Logger,
	}, nil
}

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
	}

	for _, existing := range r.tasks {
		if existing.Name == t.Name {
			return fmt.Errorf("task with name %s: %w", t.Name, model.ErrAlreadyExists)
		}
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Created task in repository: %s", t.ID)

	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	// Return a copy
	taskCopy := task
	return &taskCopy, nil
}

// GetTaskByName retrieves a task by name.
func (r *Repository) GetTaskByName(ctx context.Context, name string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, task := range r.tasks {
		if task.Name == name {
			// Return a copy
			taskCopy := task
			return &taskCopy, nil
		}
	}

	return nil, fmt.Errorf("task with name %s: %w", name, model.ErrNotFound)
}

// ListTasks returns all tasks, newest first to match the SQLite store.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Updated task in repository: %s", t.ID)

	return nil
}

// DeleteTask deletes a task along with its tile journal.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	delete(r.tiles, id)
	r.logger.Debugf("Deleted task from repository: %s", id)

	return nil
}

// SeedTiles records every tile of the given ranges as pending.
func (r *Repository) SeedTiles(ctx context.Context, taskID string, ranges []tile.Range) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	journal, ok := r.tiles[taskID]
	if !ok {
		journal = make(map[tile.Coord]storage.TileStatus)
		r.tiles[taskID] = journal
	}

	for _, rg := range ranges {
		err := rg.ForEach(func(c tile.Coord) error {
			if _, ok := journal[c]; !ok {
				journal[c] = storage.TileStatusPending
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// PendingTiles returns up to limit pending tiles in (z, x, y) order.
func (r *Repository) PendingTiles(ctx context.Context, taskID string, limit int) ([]tile.Coord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var coords []tile.Coord
	for c, status := range r.tiles[taskID] {
		if status == storage.TileStatusPending {
			coords = append(coords, c)
		}
	}

	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	if len(coords) > limit {
		coords = coords[:limit]
	}

	return coords, nil
}

// MarkTile sets the journal state of one tile.
func (r *Repository) MarkTile(ctx context.Context, taskID string, c tile.Coord, status storage.TileStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	journal, ok := r.tiles[taskID]
	if !ok {
		return fmt.Errorf("journal for task %s: %w", taskID, model.ErrNotFound)
	}
	if _, ok := journal[c]; !ok {
		return fmt.Errorf("tile %d/%d/%d of task %s: %w", c.Z, c.X, c.Y, taskID, model.ErrNotFound)
	}

	journal[c] = status
	return nil
}

// ResetFailedTiles flips every failed tile of the task back to pending.
func (r *Repository) ResetFailedTiles(ctx context.Context, taskID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for c, status := range r.tiles[taskID] {
		if status == storage.TileStatusFailed {
			r.tiles[taskID][c] = storage.TileStatusPending
			n++
		}
	}

	return n, nil
}

// TileCounts aggregates the journal state of one task.
func (r *Repository) TileCounts(ctx context.Context, taskID string) (storage.TileCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts storage.TileCounts
	for _, status := range r.tiles[taskID] {
		switch status {
		case storage.TileStatusPending:
			counts.Pending++
		case storage.TileStatusCompleted:
			counts.Completed++
		case storage.TileStatusFailed:
			counts.Failed++
		}
	}

	return counts, nil
}

// DeleteTiles removes every journal row of the task.
func (r *Repository) DeleteTiles(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tiles, taskID)
	return nil
}
