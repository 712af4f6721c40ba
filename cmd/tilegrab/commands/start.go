package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/start"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

type StartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewStartCommand returns the start command.
func NewStartCommand(rootCmd *RootCommand, app *kingpin.Application) *StartCommand {
	c := &StartCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("start", "Start or resume a download task and follow it until it ends.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c StartCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartCommand) Run(ctx context.Context) error {
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
	registry := platform.NewRegistry()
	eng, err := newEngine(c.rootCmd, repo, journal, registry)
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}

	// Create start service.
	svc, err := start.NewService(start.ServiceConfig{
		Engine:     eng,
		Repository: repo,
		Registry:   registry,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute start.
	task, err := svc.Run(ctx, start.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not start task: %w", err)
	}

	logger.Infof("Downloading task: %s (%d tiles)", task.Name, task.TotalTiles)

	// The download runs inside this process, stay on it until it ends.
	return followTask(ctx, c.rootCmd, repo, eng, task.ID)
}
