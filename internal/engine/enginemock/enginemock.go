// Package enginemock has mocks for the engine interfaces.
package enginemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/model"
)

var _ engine.Engine = &MockEngine{}

// MockEngine is a mock implementation of engine.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Start(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockEngine) Pause(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockEngine) Cancel(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockEngine) SetParallelism(ctx context.Context, taskID string, workers int) error {
	args := m.Called(ctx, taskID, workers)
	return args.Error(0)
}

func (m *MockEngine) RetryFailed(ctx context.Context, taskID string) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEngine) DeleteOutput(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockEngine) Subscribe(taskID string) (<-chan model.ProgressEvent, func()) {
	args := m.Called(taskID)
	ch, _ := args.Get(0).(chan model.ProgressEvent)
	cancel, _ := args.Get(1).(func())
	if cancel == nil {
		cancel = func() {}
	}
	return ch, cancel
}

func (m *MockEngine) Snapshot(taskID string) (model.ProgressEvent, bool) {
	args := m.Called(taskID)
	return args.Get(0).(model.ProgressEvent), args.Bool(1)
}
