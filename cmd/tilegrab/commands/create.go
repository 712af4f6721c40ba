package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/create"
	"github.com/slok/tilegrab/internal/conventions"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage/io"
	"github.com/slok/tilegrab/internal/storage/sqlite"
	"github.com/slok/tilegrab/internal/tile"
)

type CreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configFile string

	// Direct task flags, these override the file values.
	name        string
	platformID  string
	layer       string
	bounds      string
	zooms       string
	output      string
	container   string
	parallelism int
	retryBudget int
	apiKey      string
}

// NewCreateCommand returns the create command.
func NewCreateCommand(rootCmd *RootCommand, app *kingpin.Application) *CreateCommand {
	c := &CreateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("create", "Create a new download task.")
	c.Cmd.Flag("file", "Path to a task definition YAML file.").Short('f').StringVar(&c.configFile)

	c.Cmd.Flag("name", "Name for the task.").Short('n').StringVar(&c.name)
	c.Cmd.Flag("platform", "Tile platform (see the platforms command).").Short('p').StringVar(&c.platformID)
	c.Cmd.Flag("layer", "Map layer (roadmap, satellite, hybrid, terrain).").StringVar(&c.layer)
	c.Cmd.Flag("bounds", "Region bounds as north,south,east,west degrees.").StringVar(&c.bounds)
	c.Cmd.Flag("zooms", "Zoom levels, e.g. \"12\", \"10-14\" or \"0-3,8\".").StringVar(&c.zooms)
	c.Cmd.Flag("output", "Output path, relative paths land in the data dir downloads.").Short('o').StringVar(&c.output)
	c.Cmd.Flag("container", "Output container (folder, mbtiles, zip), detected from the path when empty.").StringVar(&c.container)
	c.Cmd.Flag("parallelism", "Concurrent tile fetches.").IntVar(&c.parallelism)
	c.Cmd.Flag("retry-budget", "Per-tile retries before a tile counts as failed.").Default("-1").IntVar(&c.retryBudget)
	c.Cmd.Flag("api-key", "API key for platforms that require one.").StringVar(&c.apiKey)

	return c
}

func (c CreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CreateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.taskConfig(ctx)
	if err != nil {
		return err
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.ResolvedDBPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Create service.
	svc, err := create.NewService(create.ServiceConfig{
		Repository: repo,
		Registry:   platform.NewRegistry(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute create.
	task, err := svc.Create(ctx, create.CreateOptions{
		Config: cfg,
	})
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	// Output success message.
	fmt.Fprintf(c.rootCmd.Stdout, "Task created successfully!\n")
	fmt.Fprintf(c.rootCmd.Stdout, "  ID:       %s\n", task.ID)
	fmt.Fprintf(c.rootCmd.Stdout, "  Name:     %s\n", task.Name)
	fmt.Fprintf(c.rootCmd.Stdout, "  Platform: %s (%s)\n", task.Config.Platform, task.Config.Layer)
	fmt.Fprintf(c.rootCmd.Stdout, "  Tiles:    %s\n", printer.FormatCount(task.TotalTiles))
	fmt.Fprintf(c.rootCmd.Stdout, "  Output:   %s\n", task.Config.OutputPath)

	return nil
}

// taskConfig builds the task configuration from the YAML file and the direct
// flags, flags win when both are given.
func (c CreateCommand) taskConfig(ctx context.Context) (model.TaskConfig, error) {
	var cfg model.TaskConfig

	if c.configFile != "" {
		configPath := c.configFile
		if !filepath.IsAbs(configPath) {
			absPath, err := filepath.Abs(configPath)
			if err != nil {
				return cfg, fmt.Errorf("could not resolve task file path: %w", err)
			}
			configPath = absPath
		}

		configRepo := io.NewTaskYAMLRepository(os.DirFS("/"))
		var err error
		cfg, err = configRepo.GetTaskConfig(ctx, configPath[1:])
		if err != nil {
			return cfg, fmt.Errorf("could not load task file: %w", err)
		}
	}

	if c.name != "" {
		cfg.Name = c.name
	}
	if c.platformID != "" {
		cfg.Platform = c.platformID
	}
	if c.layer != "" {
		cfg.Layer = model.LayerType(c.layer)
	}
	if c.bounds != "" {
		bounds, err := parseBounds(c.bounds)
		if err != nil {
			return cfg, fmt.Errorf("invalid --bounds value: %w", err)
		}
		cfg.Bounds = bounds
	}
	if c.zooms != "" {
		zooms, err := tile.ParseZoomSet(c.zooms)
		if err != nil {
			return cfg, fmt.Errorf("invalid --zooms value: %w", err)
		}
		cfg.Zooms = zooms
	}
	if c.output != "" {
		cfg.OutputPath = c.output
	}
	if c.container != "" {
		cfg.Container = model.ContainerKind(c.container)
	}
	if c.parallelism > 0 {
		cfg.Parallelism = c.parallelism
	}
	if c.retryBudget >= 0 {
		cfg.RetryBudget = c.retryBudget
	} else if c.configFile == "" {
		cfg.RetryBudget = model.DefaultRetryBudget
	}
	if c.apiKey != "" {
		cfg.APIKey = c.apiKey
	}

	if c.configFile == "" && cfg.Layer == "" {
		cfg.Layer = model.LayerRoadmap
	}
	if cfg.OutputPath != "" {
		cfg.OutputPath = conventions.OutputPath(c.rootCmd.DataDir, cfg.OutputPath)
	}

	return cfg, nil
}

// parseBounds parses a "north,south,east,west" degrees string.
func parseBounds(s string) (model.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.Bounds{}, fmt.Errorf("expected north,south,east,west, got %q", s)
	}

	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return model.Bounds{}, fmt.Errorf("invalid degrees value %q", part)
		}
		vals[i] = v
	}

	return model.Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}, nil
}
