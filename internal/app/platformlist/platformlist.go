package platformlist

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
)

// ServiceConfig is the configuration for the platformlist service.
type ServiceConfig struct {
	Registry *platform.Registry
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("platform registry is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the supported tile platforms.
type Service struct {
	registry *platform.Registry
	logger   log.Logger
}

// NewService creates a new platformlist service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the platformlist request parameters.
type Request struct{}

// Run lists every known platform with its capabilities.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Platform, error) {
	platforms := s.registry.List()
	s.logger.Debugf("found %d platforms", len(platforms))
	return platforms, nil
}
