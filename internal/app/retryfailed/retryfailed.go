package retryfailed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
)

// ServiceConfig is the configuration for the retryfailed service.
type ServiceConfig struct {
	Engine     engine.Engine
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service re-queues the failed tiles of a task.
type Service struct {
	engine engine.Engine
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new retryfailed service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		engine: cfg.Engine,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the retryfailed request parameters.
type Request struct {
	// NameOrID is the task name or ID whose failed tiles are retried.
	NameOrID string
}

// Result is the outcome of a retry request.
type Result struct {
	Task *model.Task
	// Retried is the number of tiles re-queued for download.
	Retried int64
}

// Run re-queues the failed tiles of a task by name or ID and moves the task
// to downloading. Legal for failed tasks, completed tasks that still carry
// failed tiles, and tasks already downloading (the reset happens mid-run).
// Completed counts are never touched, only the failed subset is re-attempted.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debugf("retrying failed tiles of task: %s", req.NameOrID)

	// Lookup task by name first, then by ID if it looks like a ULID.
	task, err := s.repo.GetTaskByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(req.NameOrID) {
		task, err = s.repo.GetTask(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	switch {
	case task.Status == model.TaskStatusFailed:
	case task.Status == model.TaskStatusDownloading:
	case task.Status == model.TaskStatusCompleted && task.FailedTiles > 0:
	case task.Status == model.TaskStatusCompleted:
		return nil, fmt.Errorf("task has no failed tiles to retry: %w", model.ErrIllegalState)
	default:
		return nil, fmt.Errorf("cannot retry task in status %q: %w", task.Status, model.ErrIllegalState)
	}

	wasDownloading := task.Status == model.TaskStatusDownloading

	// Flip the failed journal entries back to pending at the backend.
	retried, err := s.engine.RetryFailed(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("could not re-queue failed tiles: %w", err)
	}

	task.Status = model.TaskStatusDownloading
	task.FailedTiles = 0
	task.ErrorMessage = ""
	task.CompletedAt = nil
	task.UpdatedAt = time.Now().UTC()

	// The record must be downloading before the run starts, progress reports
	// for a still-terminal record would be dropped as late events.
	if err := s.repo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	if !wasDownloading {
		if err := s.engine.Start(ctx, task.ID); err != nil {
			task.Status = model.TaskStatusPaused
			if revertErr := s.repo.UpdateTask(ctx, *task); revertErr != nil {
				s.logger.Warningf("could not park task as paused after start failure: %v", revertErr)
			}
			return nil, fmt.Errorf("could not start download: %w", err)
		}
	}

	s.logger.Infof("re-queued %d failed tiles of task: %s (ID: %s)", retried, task.Name, task.ID)
	return &Result{Task: task, Retried: retried}, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
