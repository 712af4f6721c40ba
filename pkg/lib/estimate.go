package lib

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/app/estimate"
	"github.com/slok/tilegrab/internal/app/platformlist"
)

// Estimate previews how many tiles a bounds/zoom selection covers and what
// the download would weigh. Pure: nothing is created or fetched.
func (c *Client) Estimate(ctx context.Context, opts EstimateOpts) (*TileEstimate, error) {
	svc, err := estimate.NewService(estimate.ServiceConfig{
		Registry: c.registry,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	est, err := svc.Run(ctx, estimate.Request{
		Platform:     opts.Platform,
		Bounds:       toInternalBounds(opts.Bounds),
		Zooms:        opts.Zooms,
		AvgTileBytes: opts.AvgTileBytes,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalEstimate(*est)
	return &result, nil
}

// Platforms lists every known tile platform with its capabilities.
func (c *Client) Platforms(ctx context.Context) ([]Platform, error) {
	svc, err := platformlist.NewService(platformlist.ServiceConfig{
		Registry: c.registry,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	platforms, err := svc.Run(ctx, platformlist.Request{})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalPlatformList(platforms), nil
}
