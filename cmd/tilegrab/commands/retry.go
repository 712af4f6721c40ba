package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tilegrab/internal/app/retryfailed"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

type RetryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewRetryCommand returns the retry command.
func NewRetryCommand(rootCmd *RootCommand, app *kingpin.Application) *RetryCommand {
	c := &RetryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("retry", "Re-queue the failed tiles of a task and follow the download.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c RetryCommand) Name() string { return c.Cmd.FullCommand() }

func (c RetryCommand) Run(ctx context.Context) error {
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

	// Create retry service.
	svc, err := retryfailed.NewService(retryfailed.ServiceConfig{
		Engine:     eng,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute retry.
	result, err := svc.Run(ctx, retryfailed.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not retry task: %w", err)
	}

	logger.Infof("Re-queued %s failed tiles of task: %s", printer.FormatCount(result.Retried), result.Task.Name)

	// The download runs inside this process, stay on it until it ends.
	return followTask(ctx, c.rootCmd, repo, eng, result.Task.ID)
}
