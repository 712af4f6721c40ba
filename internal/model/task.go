package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle status of a download task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is created but never started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusDownloading indicates the backend is fetching tiles.
	TaskStatusDownloading TaskStatus = "downloading"
	// TaskStatusPaused indicates the task was stopped and can be resumed.
	TaskStatusPaused TaskStatus = "paused"
	// TaskStatusCompleted indicates no tiles remain outstanding (there may
	// still be failed tiles, retryable with a retry operation).
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the backend hit a fatal error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled by the operator.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when no further work will happen for the task
// unless the operator explicitly retries it.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// ValidateTransition checks that moving from s to target is a legal
// transition of the task state machine.
func (s TaskStatus) ValidateTransition(target TaskStatus) error {
	if !s.canTransition(target) {
		return fmt.Errorf("cannot transition from %q to %q: %w", s, target, ErrIllegalState)
	}
	return nil
}

func (s TaskStatus) canTransition(target TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return target == TaskStatusDownloading
	case TaskStatusDownloading:
		return target == TaskStatusPaused ||
			target == TaskStatusCancelled ||
			target == TaskStatusCompleted ||
			target == TaskStatusFailed
	case TaskStatusPaused:
		return target == TaskStatusDownloading || target == TaskStatusCancelled
	case TaskStatusCompleted, TaskStatusFailed:
		// Retrying the failed subset resumes downloading.
		return target == TaskStatusDownloading
	default:
		return false
	}
}

// ContainerKind identifies the on-disk output container for a task.
type ContainerKind string

const (
	// ContainerFolder stores tiles as a z/x/y.png directory tree.
	ContainerFolder ContainerKind = "folder"
	// ContainerMBTiles stores tiles in a single MBTiles (SQLite) file.
	ContainerMBTiles ContainerKind = "mbtiles"
	// ContainerZip stores tiles as z/x/y.png entries in a ZIP archive.
	ContainerZip ContainerKind = "zip"
)

func (k ContainerKind) valid() bool {
	return k == ContainerFolder || k == ContainerMBTiles || k == ContainerZip
}

// Bounds is a geographic rectangle in degrees.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Valid reports whether the bounds describe a real region. Invalid bounds
// mean "no region selected" and must never be used to start a task.
func (b Bounds) Valid() bool {
	return b.North > b.South && b.East > b.West
}

const (
	// MaxParallelism is the ceiling for concurrent tile fetches per task.
	MaxParallelism = 32
	// DefaultParallelism is the parallelism used when none is requested.
	DefaultParallelism = 8
	// DefaultRetryBudget is the per-tile retry budget used when none is requested.
	DefaultRetryBudget = 3
)

// TaskConfig is the static configuration for creating a download task.
// These settings are immutable after creation, except Parallelism which is
// adjustable while the task is downloading.
type TaskConfig struct {
	Name        string
	Platform    string
	Layer       LayerType
	Bounds      Bounds
	Zooms       []int
	OutputPath  string
	Container   ContainerKind
	Parallelism int
	RetryBudget int
	APIKey      string
}

// Validate validates the task configuration against the capabilities of its
// platform. It fails before any state change so a task is never half-created.
func (c *TaskConfig) Validate(p Platform) error {
	if c.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}

	if !p.Enabled {
		return fmt.Errorf("platform %q is disabled: %w", p.ID, ErrNotValid)
	}
	if !p.SupportsLayer(c.Layer) {
		return fmt.Errorf("platform %q does not support layer %q: %w", p.ID, c.Layer, ErrNotValid)
	}

	if !c.Bounds.Valid() {
		return fmt.Errorf("bounds are not a valid region (north must be > south and east > west): %w", ErrNotValid)
	}

	if len(c.Zooms) == 0 {
		return fmt.Errorf("at least one zoom level is required: %w", ErrNotValid)
	}
	for _, z := range c.Zooms {
		if !p.ValidZoom(z) {
			return fmt.Errorf("zoom %d is outside platform %q range [%d, %d]: %w", z, p.ID, p.MinZoom, p.MaxZoom, ErrNotValid)
		}
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output path is required: %w", ErrNotValid)
	}
	if !c.Container.valid() {
		return fmt.Errorf("unknown output container %q: %w", c.Container, ErrNotValid)
	}

	if c.Parallelism < 1 || c.Parallelism > MaxParallelism {
		return fmt.Errorf("parallelism must be within [1, %d]: %w", MaxParallelism, ErrNotValid)
	}
	if c.RetryBudget < 0 {
		return fmt.Errorf("retry budget must not be negative: %w", ErrNotValid)
	}

	if p.RequiresKey && c.APIKey == "" {
		return fmt.Errorf("platform %q requires an API key: %w", p.ID, ErrNotValid)
	}

	return nil
}

// Task represents a download task instance.
type Task struct {
	ID     string
	Name   string
	Status TaskStatus
	Config TaskConfig

	// TotalTiles is computed once at creation and frozen for the task's
	// lifetime; progress events never change it.
	TotalTiles     int64
	CompletedTiles int64
	FailedTiles    int64

	// CurrentZoom is the zoom level last reported by the backend, for
	// display only.
	CurrentZoom int
	// Throughput is the last reported tiles/second. Derived and transient,
	// it is not persisted.
	Throughput float64

	// ErrorMessage is set only when the task is failed.
	ErrorMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Percent returns the completed percentage in [0, 100].
func (t *Task) Percent() float64 {
	if t.TotalTiles <= 0 {
		return 0
	}
	return float64(t.CompletedTiles) / float64(t.TotalTiles) * 100
}
