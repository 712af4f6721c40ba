package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/tilegrab/internal/app/cancel"
	"github.com/slok/tilegrab/internal/app/pause"
	"github.com/slok/tilegrab/internal/app/retryfailed"
	"github.com/slok/tilegrab/internal/app/setparallelism"
	"github.com/slok/tilegrab/internal/app/start"
	"github.com/slok/tilegrab/internal/tracker"
)

const followPollInterval = time.Second

// StartTask starts a pending task or resumes a paused one. It returns as
// soon as the backend acknowledges the run, not when downloading finishes.
// Use [Client.FollowTask] to wait for the outcome.
func (c *Client) StartTask(ctx context.Context, nameOrID string) (*Task, error) {
	svc, err := start.NewService(start.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Registry:   c.registry,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, start.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// PauseTask pauses a downloading task. The backend stops dispatching new
// tiles, already in-flight fetches may finish. Counters are preserved so a
// later [Client.StartTask] resumes where the task left off.
func (c *Client) PauseTask(ctx context.Context, nameOrID string) (*Task, error) {
	svc, err := pause.NewService(pause.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, pause.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// CancelTask cancels a downloading or paused task. Cancelled is terminal:
// the task can never run again, only be removed.
func (c *Client) CancelTask(ctx context.Context, nameOrID string) (*Task, error) {
	svc, err := cancel.NewService(cancel.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, cancel.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// RetryFailed re-queues the failed tiles of a task and moves it back to
// downloading. Legal for failed tasks, completed tasks that still carry
// failed tiles, and tasks already downloading.
func (c *Client) RetryFailed(ctx context.Context, nameOrID string) (*RetryResult, error) {
	svc, err := retryfailed.NewService(retryfailed.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, retryfailed.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	task := fromInternalTask(*res.Task)
	return &RetryResult{Task: &task, Retried: res.Retried}, nil
}

// SetParallelism adjusts the number of concurrent tile fetches of a
// downloading task. Workers must be within [1, MaxParallelism], values
// outside the range are rejected, never clamped.
func (c *Client) SetParallelism(ctx context.Context, nameOrID string, workers int) (*Task, error) {
	svc, err := setparallelism.NewService(setparallelism.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, setparallelism.Request{NameOrID: nameOrID, Parallelism: workers})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// FollowTask blocks until the task stops moving and returns the final task
// state: completed or failed when the run finished, paused when it was
// stopped from elsewhere. Cancelling ctx abandons the follow and returns the
// last known state, the download itself keeps running.
func (c *Client) FollowTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	tr, err := tracker.New(tracker.Config{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create tracker: %w", err)
	}

	final, err := tr.Follow(ctx, c.eng, task.ID, followPollInterval)
	if err != nil {
		if final != nil {
			result := fromInternalTask(*final)
			return &result, mapError(err)
		}
		return nil, mapError(err)
	}

	result := fromInternalTask(*final)
	return &result, nil
}
