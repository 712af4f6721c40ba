package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/setparallelism"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

type ParallelismCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	workers  int
}

// NewParallelismCommand returns the parallelism command.
func NewParallelismCommand(rootCmd *RootCommand, app *kingpin.Application) *ParallelismCommand {
	c := &ParallelismCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("parallelism", "Adjust the worker count of a downloading task.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("workers", "Concurrent tile fetches.").Required().IntVar(&c.workers)

	return c
}

func (c ParallelismCommand) Name() string { return c.Cmd.FullCommand() }

func (c ParallelismCommand) Run(ctx context.Context) error {
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

	// Create parallelism service.
	svc, err := setparallelism.NewService(setparallelism.ServiceConfig{
		Engine:     eng,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute parallelism change.
	task, err := svc.Run(ctx, setparallelism.Request{
		NameOrID:    c.nameOrID,
		Parallelism: c.workers,
	})
	if err != nil {
		return fmt.Errorf("could not set parallelism: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Set parallelism of task %s to %d workers", task.Name, task.Config.Parallelism)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
