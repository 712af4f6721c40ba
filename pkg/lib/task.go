package lib

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/app/create"
	"github.com/slok/tilegrab/internal/app/get"
	"github.com/slok/tilegrab/internal/app/list"
	"github.com/slok/tilegrab/internal/app/remove"
	"github.com/slok/tilegrab/internal/model"
)

// CreateTask creates a new download task.
//
// The task starts in pending status with its tile total computed and frozen,
// nothing is fetched until [Client.StartTask].
func (c *Client) CreateTask(ctx context.Context, opts CreateTaskOpts) (*Task, error) {
	svc, err := create.NewService(create.ServiceConfig{
		Repository: c.repo,
		Registry:   c.registry,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Create(ctx, create.CreateOptions{Config: toInternalTaskConfig(opts)})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// GetTask retrieves a task by name or ID.
func (c *Client) GetTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// ListTasks lists tasks, newest first. A nil opts lists every task.
func (c *Client) ListTasks(ctx context.Context, opts *ListTasksOpts) ([]Task, error) {
	svc, err := list.NewService(list.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	tasks, err := svc.Run(ctx, list.Request{StatusFilter: toInternalStatusFilter(opts)})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalTaskList(tasks), nil
}

// RemoveTask deletes a task record by name or ID. Legal from any status: a
// downloading task is cancelled first. With deleteOutput the already-written
// tiles at the task's output destination are deleted too.
func (c *Client) RemoveTask(ctx context.Context, nameOrID string, deleteOutput bool) error {
	svc, err := remove.NewService(remove.ServiceConfig{
		Engine:     c.eng,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, remove.Request{NameOrID: nameOrID, DeleteOutput: deleteOutput})
	if err != nil {
		return mapError(err)
	}

	return nil
}

func (c *Client) getInternalTask(ctx context.Context, nameOrID string) (*model.Task, error) {
	svc, err := get.NewService(get.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc.Run(ctx, get.Request{NameOrID: nameOrID})
}
