package remove

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
)

// ServiceConfig is the configuration for the remove service.
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

// Service removes a download task.
type Service struct {
	engine engine.Engine
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new remove service.
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

// Request represents the remove request parameters.
type Request struct {
	// NameOrID is the task name or ID to remove.
	NameOrID string
	// DeleteOutput also deletes the already-written tiles at the task's
	// output destination.
	DeleteOutput bool
}

// Run removes a task by name or ID. Removal is legal from any status: a
// downloading task is cancelled first. The tile journal goes with the record,
// written output stays unless DeleteOutput is set.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("removing task: %s (delete output: %v)", req.NameOrID, req.DeleteOutput)

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

	// Cancel in-flight work first.
	if task.Status == model.TaskStatusDownloading {
		s.logger.Infof("removing downloading task, cancelling first: %s", task.ID)
		if err := s.engine.Cancel(ctx, task.ID); err != nil {
			return nil, fmt.Errorf("could not cancel download: %w", err)
		}
	}

	// Output deletion must happen while the record still exists, the backend
	// resolves the destination from it.
	if req.DeleteOutput {
		if err := s.engine.DeleteOutput(ctx, task.ID); err != nil {
			return nil, fmt.Errorf("could not delete output: %w", err)
		}
	}

	// Delete from repository, the tile journal cascades.
	if err := s.repo.DeleteTask(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("could not delete task from repository: %w", err)
	}

	s.logger.Infof("removed task: %s (ID: %s)", task.Name, task.ID)
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
