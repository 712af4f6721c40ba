package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/platformlist"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
)

type PlatformsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewPlatformsCommand returns the platforms command.
func NewPlatformsCommand(rootCmd *RootCommand, app *kingpin.Application) *PlatformsCommand {
	c := &PlatformsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("platforms", "List the supported tile platforms.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c PlatformsCommand) Name() string { return c.Cmd.FullCommand() }

func (c PlatformsCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Create platform list service.
	svc, err := platformlist.NewService(platformlist.ServiceConfig{
		Registry: platform.NewRegistry(),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute platform list.
	platforms, err := svc.Run(ctx, platformlist.Request{})
	if err != nil {
		return fmt.Errorf("could not list platforms: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintPlatforms(platforms); err != nil {
		return fmt.Errorf("could not print platforms: %w", err)
	}

	return nil
}
