package get

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
)

// ServiceConfig is the configuration for the get service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Get"})
	return nil
}

// Service retrieves a single download task.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new get service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the get request parameters.
type Request struct {
	// NameOrID is the task name or ID to query.
	NameOrID string
}

// Run retrieves a task by name or ID.
// It tries name lookup first, then ID lookup if the input looks like a ULID.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("getting task: %s", req.NameOrID)

	// Try lookup by name first.
	task, err := s.repo.GetTaskByName(ctx, req.NameOrID)
	if err == nil {
		return task, nil
	}

	// Fall back to ID lookup when the input could be a ULID.
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(req.NameOrID) {
		task, err = s.repo.GetTask(ctx, req.NameOrID)
		if err == nil {
			return task, nil
		}
	}

	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("task not found: %s: %w", req.NameOrID, model.ErrNotFound)
	}

	return nil, fmt.Errorf("could not get task: %w", err)
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
