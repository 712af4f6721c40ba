package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage/sqlite/migrations"
	"github.com/slok/tilegrab/internal/tile"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository. Opening the store also
// normalizes interrupted tasks: anything left in downloading state by a
// previous process is moved to paused, since no backend run survives a
// process restart.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	if err := normalizeInterrupted(ctx, db, cfg.Logger); err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

func normalizeInterrupted(ctx context.Context, db *sql.DB, logger log.Logger) error {
	res, err := db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE status = ?`,
		model.TaskStatusPaused, time.Now().Unix(), model.TaskStatusDownloading,
	)
	if err != nil {
		return fmt.Errorf("could not normalize interrupted tasks: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Infof("Marked %d interrupted task(s) as paused", n)
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// DB exposes the underlying handle so the tile journal can share it.
func (r *Repository) DB() *sql.DB { return r.db }

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	query := `
		INSERT INTO tasks (
			id, name, platform, layer,
			bounds_north, bounds_south, bounds_east, bounds_west,
			zooms, output_path, container,
			parallelism, retry_budget, api_key,
			status, total_tiles, completed_tiles, failed_tiles,
			current_zoom, error_message,
			created_at, updated_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.Name,
		t.Config.Platform,
		t.Config.Layer,
		t.Config.Bounds.North,
		t.Config.Bounds.South,
		t.Config.Bounds.East,
		t.Config.Bounds.West,
		tile.FormatZoomSet(t.Config.Zooms),
		t.Config.OutputPath,
		t.Config.Container,
		t.Config.Parallelism,
		t.Config.RetryBudget,
		t.Config.APIKey,
		t.Status,
		t.TotalTiles,
		t.CompletedTiles,
		t.FailedTiles,
		t.CurrentZoom,
		t.ErrorMessage,
		t.CreatedAt.Unix(),
		t.UpdatedAt.Unix(),
		unixPtr(t.CompletedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tasks.") {
			return fmt.Errorf("task already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

const taskColumns = `
	id, name, platform, layer,
	bounds_north, bounds_south, bounds_east, bounds_west,
	zooms, output_path, container,
	parallelism, retry_budget, api_key,
	status, total_tiles, completed_tiles, failed_tiles,
	current_zoom, error_message,
	created_at, updated_at, completed_at
`

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := r.scanOne(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return task, nil
}

// GetTaskByName retrieves a task by name.
func (r *Repository) GetTaskByName(ctx context.Context, name string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE name = ?`

	task, err := r.scanOne(ctx, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return task, nil
}

// ListTasks returns all tasks, newest first.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	query := `
		UPDATE tasks
		SET
			name = ?,
			platform = ?,
			layer = ?,
			bounds_north = ?,
			bounds_south = ?,
			bounds_east = ?,
			bounds_west = ?,
			zooms = ?,
			output_path = ?,
			container = ?,
			parallelism = ?,
			retry_budget = ?,
			api_key = ?,
			status = ?,
			total_tiles = ?,
			completed_tiles = ?,
			failed_tiles = ?,
			current_zoom = ?,
			error_message = ?,
			created_at = ?,
			updated_at = ?,
			completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		t.Name,
		t.Config.Platform,
		t.Config.Layer,
		t.Config.Bounds.North,
		t.Config.Bounds.South,
		t.Config.Bounds.East,
		t.Config.Bounds.West,
		tile.FormatZoomSet(t.Config.Zooms),
		t.Config.OutputPath,
		t.Config.Container,
		t.Config.Parallelism,
		t.Config.RetryBudget,
		t.Config.APIKey,
		t.Status,
		t.TotalTiles,
		t.CompletedTiles,
		t.FailedTiles,
		t.CurrentZoom,
		t.ErrorMessage,
		t.CreatedAt.Unix(),
		t.UpdatedAt.Unix(),
		unixPtr(t.CompletedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated task in repository: %s", t.ID)
	return nil
}

// DeleteTask deletes a task. The tile journal rows cascade with it.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted task from repository: %s", id)
	return nil
}

func (r *Repository) scanOne(ctx context.Context, query string, arg any) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	task, err := r.scanRow(row)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.Task, error) {
	var task model.Task
	var zooms string
	var createdAt, updatedAt, completedAt sql.NullInt64

	err := s.Scan(
		&task.ID,
		&task.Name,
		&task.Config.Platform,
		&task.Config.Layer,
		&task.Config.Bounds.North,
		&task.Config.Bounds.South,
		&task.Config.Bounds.East,
		&task.Config.Bounds.West,
		&zooms,
		&task.Config.OutputPath,
		&task.Config.Container,
		&task.Config.Parallelism,
		&task.Config.RetryBudget,
		&task.Config.APIKey,
		&task.Status,
		&task.TotalTiles,
		&task.CompletedTiles,
		&task.FailedTiles,
		&task.CurrentZoom,
		&task.ErrorMessage,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	task.Config.Name = task.Name
	task.Config.Zooms, err = tile.ParseZoomSet(zooms)
	if err != nil {
		return model.Task{}, fmt.Errorf("stored zoom set is corrupt: %w", err)
	}

	if err := r.setTimestamps(&task, createdAt, updatedAt, completedAt); err != nil {
		return model.Task{}, err
	}

	return task, nil
}

func (r *Repository) setTimestamps(t *model.Task, createdAt, updatedAt, completedAt sql.NullInt64) error {
	if !createdAt.Valid {
		return fmt.Errorf("created_at is required")
	}
	t.CreatedAt = timeFromUnix(createdAt.Int64)

	if !updatedAt.Valid {
		return fmt.Errorf("updated_at is required")
	}
	t.UpdatedAt = timeFromUnix(updatedAt.Int64)

	if completedAt.Valid {
		ct := timeFromUnix(completedAt.Int64)
		t.CompletedAt = &ct
	}

	return nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}
