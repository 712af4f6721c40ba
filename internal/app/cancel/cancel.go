package cancel

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

// ServiceConfig is the configuration for the cancel service.
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

// Service cancels a download task.
type Service struct {
	engine engine.Engine
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new cancel service.
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

// Request represents the cancel request parameters.
type Request struct {
	// NameOrID is the task name or ID to cancel.
	NameOrID string
}

// Run cancels a downloading or paused task by name or ID. Cancelled is
// terminal: counters freeze at their last values and the record is marked
// cancelled as soon as the backend acknowledges, late in-flight progress
// reports are ignored from then on.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("cancelling task: %s", req.NameOrID)

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

	if err := task.Status.ValidateTransition(model.TaskStatusCancelled); err != nil {
		return nil, err
	}

	if err := s.engine.Cancel(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("could not cancel download: %w", err)
	}

	now := time.Now().UTC()
	task.Status = model.TaskStatusCancelled
	task.CompletedAt = &now
	task.UpdatedAt = now

	if err := s.repo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	s.logger.Infof("cancelled task: %s (ID: %s)", task.Name, task.ID)
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
