package lib

import (
	"time"

	"github.com/slok/tilegrab/internal/model"
)

// EngineType identifies the download backend implementation.
type EngineType string

const (
	// EngineHTTP fetches real tiles over HTTP from the task's platform and
	// writes them into the task's output container.
	EngineHTTP EngineType = "http"

	// EngineFake uses an in-memory simulation (no network, no output files).
	// Use this for unit testing without infrastructure dependencies.
	EngineFake EngineType = "fake"
)

// TaskStatus represents the lifecycle state of a download task.
//
// The typical lifecycle is:
//
//	pending -> downloading -> completed
//
// A downloading task can be paused and resumed, cancelled, or fail.
// Completed and failed tasks re-enter downloading through
// [Client.RetryFailed]; cancelled is final.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is created but never started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusDownloading indicates the backend is fetching tiles.
	TaskStatusDownloading TaskStatus = "downloading"
	// TaskStatusPaused indicates the task was stopped and can be resumed.
	TaskStatusPaused TaskStatus = "paused"
	// TaskStatusCompleted indicates no tiles remain outstanding (there may
	// still be failed tiles, retryable with [Client.RetryFailed]).
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the backend hit a fatal error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ContainerKind identifies the on-disk output container of a task.
type ContainerKind string

const (
	// ContainerFolder stores tiles as a z/x/y.png directory tree.
	ContainerFolder ContainerKind = "folder"
	// ContainerMBTiles stores tiles in a single MBTiles (SQLite) file.
	ContainerMBTiles ContainerKind = "mbtiles"
	// ContainerZip stores tiles as z/x/y.png entries in a ZIP archive.
	ContainerZip ContainerKind = "zip"
)

// LayerType identifies a map layer kind a platform can serve.
type LayerType string

const (
	// LayerRoadmap is the standard street/vector layer.
	LayerRoadmap LayerType = "roadmap"
	// LayerSatellite is the satellite imagery layer.
	LayerSatellite LayerType = "satellite"
	// LayerHybrid is satellite imagery with road/label overlay.
	LayerHybrid LayerType = "hybrid"
	// LayerTerrain is the shaded terrain layer.
	LayerTerrain LayerType = "terrain"
)

const (
	// MaxParallelism is the ceiling for concurrent tile fetches per task.
	MaxParallelism = model.MaxParallelism
	// DefaultParallelism is the parallelism used when none is requested.
	DefaultParallelism = model.DefaultParallelism
	// DefaultRetryBudget is the per-tile retry budget used when none is
	// requested.
	DefaultRetryBudget = model.DefaultRetryBudget
)

// Bounds is a geographic rectangle in degrees. North must be greater than
// south and east greater than west.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Task represents a download task returned by the SDK.
//
// This is a read-only snapshot of the task state at the time of the API
// call. Use [Client.GetTask] to get the latest state.
type Task struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// Name is the human-friendly name.
	Name string
	// Status is the current lifecycle state.
	Status TaskStatus
	// Config is the configuration set at creation time.
	Config TaskConfig

	// TotalTiles is the tile count computed at creation and frozen for the
	// task's lifetime.
	TotalTiles int64
	// CompletedTiles is the number of tiles fetched and written so far.
	CompletedTiles int64
	// FailedTiles is the number of tiles that exhausted their retry budget.
	FailedTiles int64

	// CurrentZoom is the zoom level the backend reported last. Display only.
	CurrentZoom int
	// Throughput is the last reported tiles/second. Zero when not downloading.
	Throughput float64

	// ErrorMessage is set only when the task is failed.
	ErrorMessage string

	// CreatedAt is when the task was created.
	CreatedAt time.Time
	// UpdatedAt is when the task state last changed.
	UpdatedAt time.Time
	// CompletedAt is when the task reached completed or failed. Nil otherwise.
	CompletedAt *time.Time
}

// Percent returns the completed percentage in [0, 100].
func (t *Task) Percent() float64 {
	if t.TotalTiles <= 0 {
		return 0
	}
	return float64(t.CompletedTiles) / float64(t.TotalTiles) * 100
}

// TaskConfig is the configuration of a task, set at creation time. Immutable
// except Parallelism, which is adjustable while downloading through
// [Client.SetParallelism].
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

// CreateTaskOpts configures task creation.
//
// Name, Platform, Bounds, Zooms and OutputPath are required. Everything else
// defaults: roadmap layer, container detected from the output path
// extension, [DefaultParallelism] workers and [DefaultRetryBudget] per-tile
// retries.
type CreateTaskOpts struct {
	// Name is the task name (required). Must be unique.
	Name string
	// Platform is the tile platform ID (required). See [Client.Platforms].
	Platform string
	// Layer is the map layer to download. Empty means [LayerRoadmap].
	Layer LayerType
	// Bounds is the geographic region to cover (required).
	Bounds Bounds
	// Zooms are the zoom levels to download (required). Every level must be
	// within the platform's range.
	Zooms []int
	// OutputPath is where tiles are written (required).
	OutputPath string
	// Container overrides container detection from the output path
	// extension (".mbtiles" and ".zip" are recognized, anything else means
	// a folder tree).
	Container ContainerKind
	// Parallelism is the number of concurrent tile fetches, within
	// [1, MaxParallelism]. Zero means [DefaultParallelism].
	Parallelism int
	// RetryBudget is the per-tile retry budget. Nil means
	// [DefaultRetryBudget], an explicit zero disables retries.
	RetryBudget *int
	// APIKey authenticates against platforms that require a key.
	APIKey string
}

// ListTasksOpts configures task listing.
//
// Pass nil to [Client.ListTasks] to list all tasks.
type ListTasksOpts struct {
	// Status filters tasks by status. Nil means all statuses.
	Status *TaskStatus
}

// RetryResult is the outcome of [Client.RetryFailed].
type RetryResult struct {
	// Task is the task state right after the retry was accepted.
	Task *Task
	// Retried is the number of tiles re-queued for download.
	Retried int64
}

// EstimateOpts configures a tile estimate.
type EstimateOpts struct {
	// Platform optionally checks the zoom set against a platform's range.
	Platform string
	// Bounds is the geographic region to preview (required).
	Bounds Bounds
	// Zooms are the zoom levels to preview (required).
	Zooms []int
	// AvgTileBytes overrides the average tile size used for the byte
	// estimate. Zero means the default (20 KiB).
	AvgTileBytes int64
}

// TileEstimate is the result of previewing a bounds/zoom selection.
type TileEstimate struct {
	// TotalTiles is the exact tile count of the selection.
	TotalTiles int64
	// PerZoom is the tile count per zoom level.
	PerZoom map[int]int64
	// EstimatedBytes approximates the download size. Never a guarantee.
	EstimatedBytes int64
}

// Platform describes a tile platform the downloader can talk to.
type Platform struct {
	// ID is the platform identifier used in [CreateTaskOpts].
	ID string
	// Name is the human-friendly platform name.
	Name string
	// Enabled is false when the platform is known but currently unusable.
	Enabled bool
	// MinZoom and MaxZoom bound the zoom levels the platform serves.
	MinZoom int
	MaxZoom int
	// Layers are the layer kinds the platform serves.
	Layers []LayerType
	// RequiresKey is true when the platform needs an API key.
	RequiresKey bool
}

// ConvertOpts configures an output conversion.
type ConvertOpts struct {
	// SourcePath is the existing container to read (required).
	SourcePath string
	// TargetPath is the container to create (required).
	TargetPath string
	// SourceKind and TargetKind override container detection from the path
	// extensions. Empty means detect.
	SourceKind ContainerKind
	TargetKind ContainerKind
}

// ConvertResult is the outcome of [Client.Convert].
type ConvertResult struct {
	// Tiles is the number of tiles copied into the target container.
	Tiles int64
	// TargetKind is the container kind the tiles were written to.
	TargetKind ContainerKind
}

// --- Internal conversion helpers ---

func toInternalTaskConfig(opts CreateTaskOpts) model.TaskConfig {
	cfg := model.TaskConfig{
		Name:        opts.Name,
		Platform:    opts.Platform,
		Layer:       model.LayerType(opts.Layer),
		Bounds:      toInternalBounds(opts.Bounds),
		Zooms:       opts.Zooms,
		OutputPath:  opts.OutputPath,
		Container:   model.ContainerKind(opts.Container),
		Parallelism: opts.Parallelism,
		RetryBudget: model.DefaultRetryBudget,
		APIKey:      opts.APIKey,
	}

	// An absent layer means the standard roadmap layer. An absent retry
	// budget means the default, an explicit zero disables retries.
	if opts.Layer == "" {
		cfg.Layer = model.LayerRoadmap
	}
	if opts.RetryBudget != nil {
		cfg.RetryBudget = *opts.RetryBudget
	}

	return cfg
}

func toInternalBounds(b Bounds) model.Bounds {
	return model.Bounds{North: b.North, South: b.South, East: b.East, West: b.West}
}

func toInternalStatusFilter(opts *ListTasksOpts) *model.TaskStatus {
	if opts == nil || opts.Status == nil {
		return nil
	}
	s := model.TaskStatus(*opts.Status)
	return &s
}

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:             t.ID,
		Name:           t.Name,
		Status:         TaskStatus(t.Status),
		Config:         fromInternalTaskConfig(t.Config),
		TotalTiles:     t.TotalTiles,
		CompletedTiles: t.CompletedTiles,
		FailedTiles:    t.FailedTiles,
		CurrentZoom:    t.CurrentZoom,
		Throughput:     t.Throughput,
		ErrorMessage:   t.ErrorMessage,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func fromInternalTaskConfig(c model.TaskConfig) TaskConfig {
	return TaskConfig{
		Name:     c.Name,
		Platform: c.Platform,
		Layer:    LayerType(c.Layer),
		Bounds: Bounds{
			North: c.Bounds.North,
			South: c.Bounds.South,
			East:  c.Bounds.East,
			West:  c.Bounds.West,
		},
		Zooms:       c.Zooms,
		OutputPath:  c.OutputPath,
		Container:   ContainerKind(c.Container),
		Parallelism: c.Parallelism,
		RetryBudget: c.RetryBudget,
		APIKey:      c.APIKey,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalEstimate(e model.TileEstimate) TileEstimate {
	perZoom := make(map[int]int64, len(e.PerZoom))
	for z, n := range e.PerZoom {
		perZoom[z] = n
	}

	return TileEstimate{
		TotalTiles:     e.TotalTiles,
		PerZoom:        perZoom,
		EstimatedBytes: e.EstimatedBytes,
	}
}

func fromInternalPlatform(p model.Platform) Platform {
	layers := make([]LayerType, len(p.Layers))
	for i, l := range p.Layers {
		layers[i] = LayerType(l)
	}

	return Platform{
		ID:          p.ID,
		Name:        p.Name,
		Enabled:     p.Enabled,
		MinZoom:     p.MinZoom,
		MaxZoom:     p.MaxZoom,
		Layers:      layers,
		RequiresKey: p.RequiresKey,
	}
}

func fromInternalPlatformList(ps []model.Platform) []Platform {
	result := make([]Platform, len(ps))
	for i, p := range ps {
		result[i] = fromInternalPlatform(p)
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case isInternalError(err, model.ErrIllegalState):
		return joinErrors(err, ErrIllegalState)
	case isInternalError(err, model.ErrOutOfRange):
		return joinErrors(err, ErrOutOfRange)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
