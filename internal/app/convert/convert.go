package convert

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/container"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
)

// ServiceConfig is the configuration for the convert service.
type ServiceConfig struct {
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service converts downloaded output between container kinds.
type Service struct {
	logger log.Logger
}

// NewService creates a new convert service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		logger: cfg.Logger,
	}, nil
}

// Request represents the convert request parameters.
type Request struct {
	SourcePath string
	TargetPath string
	// SourceKind and TargetKind override container detection from the path
	// extensions. Empty means detect.
	SourceKind model.ContainerKind
	TargetKind model.ContainerKind
}

// Result is the outcome of a conversion.
type Result struct {
	// Tiles is the number of tiles copied into the target container.
	Tiles int64
	// TargetKind is the container kind the tiles were written to.
	TargetKind model.ContainerKind
}

// Run copies every tile of the source container into a new container at the
// target path. Works on any finished output regardless of the task that
// produced it.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.SourcePath == "" || req.TargetPath == "" {
		return nil, fmt.Errorf("source and target paths are required: %w", model.ErrNotValid)
	}

	srcKind := req.SourceKind
	if srcKind == "" {
		srcKind = container.DetectKind(req.SourcePath)
	}
	dstKind := req.TargetKind
	if dstKind == "" {
		dstKind = container.DetectKind(req.TargetPath)
	}

	s.logger.Debugf("converting %s (%s) to %s (%s)", req.SourcePath, srcKind, req.TargetPath, dstKind)

	src, err := container.NewReader(srcKind, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("could not open source container: %w", err)
	}
	defer src.Close()

	dst, err := container.NewWriter(dstKind, req.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("could not open target container: %w", err)
	}

	tiles, err := container.Convert(ctx, src, dst)
	if err != nil {
		dst.Close()
		return nil, fmt.Errorf("could not convert: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("could not close target container: %w", err)
	}

	s.logger.Infof("converted %d tiles from %s to %s", tiles, srcKind, dstKind)
	return &Result{Tiles: tiles, TargetKind: dstKind}, nil
}
