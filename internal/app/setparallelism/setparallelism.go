package setparallelism

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

// ServiceConfig is the configuration for the setparallelism service.
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

// Service adjusts the worker parallelism of a downloading task.
type Service struct {
	engine engine.Engine
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new setparallelism service.
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

// Request represents the setparallelism request parameters.
type Request struct {
	// NameOrID is the task name or ID to adjust.
	NameOrID string
	// Parallelism is the new number of concurrent tile fetches.
	Parallelism int
}

// Run adjusts the parallelism of a downloading task by name or ID. Values
// outside the valid range are rejected, never clamped. The new value is
// advisory to the backend and takes effect on the next dispatch batch.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("setting parallelism of task %s to %d", req.NameOrID, req.Parallelism)

	if req.Parallelism < 1 || req.Parallelism > model.MaxParallelism {
		return nil, fmt.Errorf("parallelism must be within [1, %d], got %d: %w", model.MaxParallelism, req.Parallelism, model.ErrOutOfRange)
	}

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

	if task.Status != model.TaskStatusDownloading {
		return nil, fmt.Errorf("parallelism is only adjustable while downloading, task is %q: %w", task.Status, model.ErrIllegalState)
	}

	task.Config.Parallelism = req.Parallelism
	task.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	// Forward to the backend, the running worker pool resizes at the next batch.
	if err := s.engine.SetParallelism(ctx, task.ID, req.Parallelism); err != nil {
		return nil, fmt.Errorf("could not adjust backend parallelism: %w", err)
	}

	s.logger.Infof("set parallelism of task %s (ID: %s) to %d", task.Name, task.ID, req.Parallelism)
	return task, nil
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
