package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

// TaskYAMLRepository loads task definitions from YAML files.
type TaskYAMLRepository struct {
	fs fs.FS
}

// NewTaskYAMLRepository creates a new YAML task definition repository.
func NewTaskYAMLRepository(filesystem fs.FS) *TaskYAMLRepository {
	return &TaskYAMLRepository{fs: filesystem}
}

// GetTaskConfig loads a task definition from a YAML file and returns a domain
// model ready for the create service. Platform-dependent validation (zoom
// ranges, layers, API keys) is left to the create service, this only checks
// that the file itself is well formed.
func (r *TaskYAMLRepository) GetTaskConfig(ctx context.Context, path string) (model.TaskConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.TaskConfig{}, fmt.Errorf("reading task file: %w", err)
	}

	if ctx.Err() != nil {
		return model.TaskConfig{}, ctx.Err()
	}

	var cfg TaskConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.TaskConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return model.TaskConfig{}, fmt.Errorf("invalid task definition: %w", err)
	}

	zooms, err := tile.ParseZoomSet(cfg.Zooms)
	if err != nil {
		return model.TaskConfig{}, fmt.Errorf("invalid task definition: zooms: %w", err)
	}

	return cfg.toModel(zooms), nil
}

// TaskConfig represents the YAML structure for a task definition.
type TaskConfig struct {
	Name        string       `yaml:"name"`
	Platform    string       `yaml:"platform"`
	Layer       string       `yaml:"layer"`
	Bounds      BoundsConfig `yaml:"bounds"`
	Zooms       string       `yaml:"zooms"`
	Output      OutputConfig `yaml:"output"`
	Parallelism int          `yaml:"parallelism"`
	RetryBudget *int         `yaml:"retry_budget"`
	APIKey      string       `yaml:"api_key"`
}

// BoundsConfig represents the YAML structure for the geographic region.
type BoundsConfig struct {
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
}

// OutputConfig represents the YAML structure for the output destination.
type OutputConfig struct {
	Path      string `yaml:"path"`
	Container string `yaml:"container"`
}

func (c TaskConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if c.Zooms == "" {
		return fmt.Errorf("zooms is required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

func (c TaskConfig) toModel(zooms []int) model.TaskConfig {
	cfg := model.TaskConfig{
		Name:     c.Name,
		Platform: c.Platform,
		Layer:    model.LayerType(c.Layer),
		Bounds: model.Bounds{
			North: c.Bounds.North,
			South: c.Bounds.South,
			East:  c.Bounds.East,
			West:  c.Bounds.West,
		},
		Zooms:       zooms,
		OutputPath:  c.Output.Path,
		Container:   model.ContainerKind(c.Output.Container),
		Parallelism: c.Parallelism,
		RetryBudget: model.DefaultRetryBudget,
		APIKey:      c.APIKey,
	}

	// An absent layer means the standard roadmap layer. An absent retry
	// budget means the default, an explicit zero disables retries.
	if c.Layer == "" {
		cfg.Layer = model.LayerRoadmap
	}
	if c.RetryBudget != nil {
		cfg.RetryBudget = *c.RetryBudget
	}

	return cfg
}
