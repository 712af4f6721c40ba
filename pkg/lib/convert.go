package lib

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/app/convert"
	"github.com/slok/tilegrab/internal/model"
)

// Convert copies every tile of an existing output container into a new
// container at the target path. It works on any finished output, no task
// record is needed.
func (c *Client) Convert(ctx context.Context, opts ConvertOpts) (*ConvertResult, error) {
	svc, err := convert.NewService(convert.ServiceConfig{
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, convert.Request{
		SourcePath: opts.SourcePath,
		TargetPath: opts.TargetPath,
		SourceKind: model.ContainerKind(opts.SourceKind),
		TargetKind: model.ContainerKind(opts.TargetKind),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &ConvertResult{
		Tiles:      res.Tiles,
		TargetKind: ContainerKind(res.TargetKind),
	}, nil
}
