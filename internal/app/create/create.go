package create

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tilegrab/internal/container"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tile"
)

// ServiceConfig is the configuration for the create service.
type ServiceConfig struct {
	Repository storage.Repository
	Registry   *platform.Registry
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("platform registry is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Create"})
	return nil
}

// Service handles task creation business logic.
type Service struct {
	repo     storage.Repository
	registry *platform.Registry
	logger   log.Logger
}

// NewService creates a new create service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:     cfg.Repository,
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// CreateOptions are the options for creating a download task.
type CreateOptions struct {
	Config model.TaskConfig
}

// Create creates a new download task. The task starts in pending status with
// its total tile count computed and frozen, nothing is fetched until start.
func (s *Service) Create(ctx context.Context, opts CreateOptions) (*model.Task, error) {
	config := opts.Config
	if config.Parallelism == 0 {
		config.Parallelism = model.DefaultParallelism
	}
	if config.Container == "" {
		config.Container = container.DetectKind(config.OutputPath)
	}

	// 1. Resolve the platform
	p, err := s.registry.Get(config.Platform)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("unknown platform %q: %w", config.Platform, model.ErrNotValid)
		}
		return nil, fmt.Errorf("could not resolve platform: %w", err)
	}

	// 2. Validate config against the platform capabilities
	if err := config.Validate(p); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 3. Check name uniqueness
	_, err = s.repo.GetTaskByName(ctx, config.Name)
	if err == nil {
		return nil, fmt.Errorf("task with name %q already exists: %w", config.Name, model.ErrAlreadyExists)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not check name uniqueness: %w", err)
	}

	// 4. Freeze the tile total
	est, ok := tile.NewEstimator(tile.DefaultAvgTileBytes).Estimate(config.Bounds, config.Zooms)
	if !ok {
		return nil, fmt.Errorf("tile total is not computable for the given bounds and zooms: %w", model.ErrNotValid)
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Name:       config.Name,
		Status:     model.TaskStatusPending,
		Config:     config,
		TotalTiles: est.TotalTiles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// 5. Save to repository
	if err := s.repo.CreateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not save task: %w", err)
	}

	s.logger.Infof("Created task: %s (%s), %d tiles over %d zoom levels", task.Name, task.ID, task.TotalTiles, len(config.Zooms))

	return task, nil
}
