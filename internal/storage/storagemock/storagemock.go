// Package storagemock has mocks for the storage interfaces.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tile"
)

var (
	_ storage.Repository  = &MockRepository{}
	_ storage.TileJournal = &MockTileJournal{}
)

// MockRepository is a mock implementation of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockRepository) GetTaskByName(ctx context.Context, name string) (*model.Task, error) {
	args := m.Called(ctx, name)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockRepository) UpdateTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTileJournal is a mock implementation of storage.TileJournal.
type MockTileJournal struct {
	mock.Mock
}

func (m *MockTileJournal) SeedTiles(ctx context.Context, taskID string, ranges []tile.Range) error {
	args := m.Called(ctx, taskID, ranges)
	return args.Error(0)
}

func (m *MockTileJournal) PendingTiles(ctx context.Context, taskID string, limit int) ([]tile.Coord, error) {
	args := m.Called(ctx, taskID, limit)
	coords, _ := args.Get(0).([]tile.Coord)
	return coords, args.Error(1)
}

func (m *MockTileJournal) MarkTile(ctx context.Context, taskID string, c tile.Coord, status storage.TileStatus) error {
	args := m.Called(ctx, taskID, c, status)
	return args.Error(0)
}

func (m *MockTileJournal) ResetFailedTiles(ctx context.Context, taskID string) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTileJournal) TileCounts(ctx context.Context, taskID string) (storage.TileCounts, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(storage.TileCounts), args.Error(1)
}

func (m *MockTileJournal) DeleteTiles(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}
