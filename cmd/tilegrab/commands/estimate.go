package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/estimate"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/tile"
)

type EstimateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	platformID   string
	bounds       string
	zooms        string
	avgTileBytes int64
	format       string
}

// NewEstimateCommand returns the estimate command.
func NewEstimateCommand(rootCmd *RootCommand, app *kingpin.Application) *EstimateCommand {
	c := &EstimateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("estimate", "Estimate the tiles and size of a region before creating a task.")
	c.Cmd.Flag("bounds", "Region bounds as north,south,east,west degrees.").Required().StringVar(&c.bounds)
	c.Cmd.Flag("zooms", "Zoom levels, e.g. \"12\", \"10-14\" or \"0-3,8\".").Required().StringVar(&c.zooms)
	c.Cmd.Flag("platform", "Check the zoom levels against this platform's range.").Short('p').StringVar(&c.platformID)
	c.Cmd.Flag("avg-tile-size", "Average tile size in bytes for the size estimate.").Int64Var(&c.avgTileBytes)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c EstimateCommand) Name() string { return c.Cmd.FullCommand() }

func (c EstimateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	bounds, err := parseBounds(c.bounds)
	if err != nil {
		return fmt.Errorf("invalid --bounds value: %w", err)
	}

	zooms, err := tile.ParseZoomSet(c.zooms)
	if err != nil {
		return fmt.Errorf("invalid --zooms value: %w", err)
	}

	// Create estimate service.
	svc, err := estimate.NewService(estimate.ServiceConfig{
		Registry: platform.NewRegistry(),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute estimate.
	result, err := svc.Run(ctx, estimate.Request{
		Platform:     c.platformID,
		Bounds:       bounds,
		Zooms:        zooms,
		AvgTileBytes: c.avgTileBytes,
	})
	if err != nil {
		return fmt.Errorf("could not estimate tiles: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintEstimate(*result); err != nil {
		return fmt.Errorf("could not print estimate: %w", err)
	}

	return nil
}
