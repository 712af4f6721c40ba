package start

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage"
)

// ServiceConfig is the configuration for the start service.
type ServiceConfig struct {
	Engine     engine.Engine
	Repository storage.Repository
	Registry   *platform.Registry
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Registry == nil {
		return fmt.Errorf("platform registry is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service starts or resumes a download task.
type Service struct {
	engine   engine.Engine
	repo     storage.Repository
	registry *platform.Registry
	logger   log.Logger
}

// NewService creates a new start service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the start request parameters.
type Request struct {
	// NameOrID is the task name or ID to start.
	NameOrID string
}

// Run starts a task by name or ID. Pending tasks begin downloading, paused
// tasks resume with their completed and failed counts preserved. It returns
// as soon as the backend acknowledges, not when downloading finishes.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("starting task: %s", req.NameOrID)

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

	// Only never-started or paused tasks are startable. Terminal tasks with
	// failed tiles go through the retry operation instead.
	if task.Status != model.TaskStatusPending && task.Status != model.TaskStatusPaused {
		return nil, fmt.Errorf("cannot start task in status %q: %w", task.Status, model.ErrIllegalState)
	}

	// The configuration must still validate at start time: the credential or
	// the platform itself may have gone away since creation.
	p, err := s.registry.Get(task.Config.Platform)
	if err != nil {
		return nil, fmt.Errorf("could not resolve platform %q: %w", task.Config.Platform, err)
	}
	if err := task.Config.Validate(p); err != nil {
		return nil, fmt.Errorf("configuration no longer valid: %w", err)
	}

	// Start the download via the backend.
	if err := s.engine.Start(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("could not start download: %w", err)
	}

	// Update task state in repository.
	task.Status = model.TaskStatusDownloading
	task.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTask(ctx, *task); err != nil {
		if pauseErr := s.engine.Pause(ctx, task.ID); pauseErr != nil {
			s.logger.Warningf("could not pause download after persist failure: %v", pauseErr)
		}
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	s.logger.Infof("started task: %s (ID: %s)", task.Name, task.ID)
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
