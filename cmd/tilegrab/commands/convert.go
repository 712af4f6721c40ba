package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/convert"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/printer"
)

type ConvertCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sourcePath string
	targetPath string
	sourceKind string
	targetKind string
}

// NewConvertCommand returns the convert command.
func NewConvertCommand(rootCmd *RootCommand, app *kingpin.Application) *ConvertCommand {
	c := &ConvertCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("convert", "Copy downloaded tiles into another container format.")
	c.Cmd.Arg("source", "Source container path.").Required().StringVar(&c.sourcePath)
	c.Cmd.Arg("target", "Target container path.").Required().StringVar(&c.targetPath)
	c.Cmd.Flag("source-container", "Source container kind, detected from the path when empty.").EnumVar(&c.sourceKind, "folder", "mbtiles", "zip")
	c.Cmd.Flag("target-container", "Target container kind, detected from the path when empty.").EnumVar(&c.targetKind, "folder", "mbtiles", "zip")

	return c
}

func (c ConvertCommand) Name() string { return c.Cmd.FullCommand() }

func (c ConvertCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Create convert service.
	svc, err := convert.NewService(convert.ServiceConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute convert.
	result, err := svc.Run(ctx, convert.Request{
		SourcePath: c.sourcePath,
		TargetPath: c.targetPath,
		SourceKind: model.ContainerKind(c.sourceKind),
		TargetKind: model.ContainerKind(c.targetKind),
	})
	if err != nil {
		return fmt.Errorf("could not convert tiles: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	msg := fmt.Sprintf("Converted %s tiles to %s (%s)", printer.FormatCount(result.Tiles), c.targetPath, result.TargetKind)
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
