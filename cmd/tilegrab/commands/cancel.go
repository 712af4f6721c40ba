package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/cancel"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

type CancelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewCancelCommand returns the cancel command.
func NewCancelCommand(rootCmd *RootCommand, app *kingpin.Application) *CancelCommand {
	c := &CancelCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cancel", "Cancel a downloading or paused task for good.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c CancelCommand) Name() string { return c.Cmd.FullCommand() }

func (c CancelCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.ResolvedDBPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Initialize tile journal with the same database connection.
	journal, err := sqlite.NewJournal(sqlite.JournalConfig{
		DB:     repo.DB(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create tile journal: %w", err)
	}

	// Initialize download engine.
	eng, err := newEngine(c.rootCmd, repo, journal, platform.NewRegistry())
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}

	// Create cancel service.
	svc, err := cancel.NewService(cancel.ServiceConfig{
		Engine:     eng,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute cancel.
	task, err := svc.Run(ctx, cancel.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not cancel task: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Cancelled task: %s", task.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
