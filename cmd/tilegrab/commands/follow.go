package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/tilegrab/internal/app/pause"
	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/printer"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tracker"
)

// followPollInterval is how often followTask refreshes progress from the
// engine snapshot when no live events arrive.
const followPollInterval = time.Second

// followTask blocks until the task's run ends, merging progress into the
// store along the way. An interrupt pauses the task so a later start can
// resume it instead of leaving the record downloading forever.
func followTask(ctx context.Context, rootCmd *RootCommand, repo storage.Repository, eng engine.Engine, taskID string) error {
	tr, err := tracker.New(tracker.Config{
		Repository: repo,
		Logger:     rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create progress tracker: %w", err)
	}

	task, err := tr.Follow(ctx, eng, taskID, followPollInterval)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("could not follow task progress: %w", err)
		}

		// The follow context is gone but the engine still runs, park the
		// task as paused before tearing everything down.
		pauseSvc, err := pause.NewService(pause.ServiceConfig{
			Engine:     eng,
			Repository: repo,
			Logger:     rootCmd.Logger,
		})
		if err != nil {
			return fmt.Errorf("could not create pause service: %w", err)
		}

		task, err = pauseSvc.Run(context.Background(), pause.Request{NameOrID: taskID})
		if err != nil {
			return fmt.Errorf("could not pause interrupted task: %w", err)
		}

		p := printer.NewTablePrinter(rootCmd.Stdout)
		return p.PrintMessage(fmt.Sprintf("Paused task: %s (resume with \"tilegrab start %s\")", task.Name, task.Name))
	}

	// Print the final state of the run.
	p := printer.NewTablePrinter(rootCmd.Stdout)
	if err := p.PrintStatus(*task); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}

	return nil
}
