package estimate

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/tile"
)

// ServiceConfig is the configuration for the estimate service.
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

// Service previews the tile count and download size of a region.
type Service struct {
	registry *platform.Registry
	logger   log.Logger
}

// NewService creates a new estimate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the estimate request parameters.
type Request struct {
	// Platform optionally checks the zoom set against a platform's range.
	Platform string
	Bounds   model.Bounds
	Zooms    []int
	// AvgTileBytes overrides the average tile size used for the byte
	// estimate. Zero means the default.
	AvgTileBytes int64
}

// Run estimates the tiles covered by a region over a zoom set. Pure and
// side-effect free, safe to call on every configuration change.
func (s *Service) Run(ctx context.Context, req Request) (*model.TileEstimate, error) {
	if req.Platform != "" {
		p, err := s.registry.Get(req.Platform)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("unknown platform %q: %w", req.Platform, model.ErrNotValid)
			}
			return nil, fmt.Errorf("could not resolve platform: %w", err)
		}
		for _, z := range req.Zooms {
			if !p.ValidZoom(z) {
				return nil, fmt.Errorf("zoom %d is outside platform %q range [%d, %d]: %w", z, p.ID, p.MinZoom, p.MaxZoom, model.ErrNotValid)
			}
		}
	}

	avg := req.AvgTileBytes
	if avg <= 0 {
		avg = tile.DefaultAvgTileBytes
	}

	est, ok := tile.NewEstimator(avg).Estimate(req.Bounds, req.Zooms)
	if !ok {
		return nil, fmt.Errorf("estimate is not computable for the given bounds and zooms: %w", model.ErrNotValid)
	}

	s.logger.Debugf("estimated %d tiles over %d zoom levels", est.TotalTiles, len(req.Zooms))
	return &est, nil
}
