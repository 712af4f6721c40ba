package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/pause"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

type PauseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewPauseCommand returns the pause command.
func NewPauseCommand(rootCmd *RootCommand, app *kingpin.Application) *PauseCommand {
	c := &PauseCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("pause", "Pause a downloading task.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c PauseCommand) Name() string { return c.Cmd.FullCommand() }

func (c PauseCommand) Run(ctx context.Context) error {
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

	// Create pause service.
	svc, err := pause.NewService(pause.ServiceConfig{
		Engine:     eng,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute pause.
	task, err := svc.Run(ctx, pause.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not pause task: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Paused task: %s", task.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
