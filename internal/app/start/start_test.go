package start_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/start"
	"github.com/slok/tilegrab/internal/engine/enginemock"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage/storagemock"
)

const testULID = "01H2QWERTYASDFGZXCVBNMLKJH"

func testTask(status model.TaskStatus) *model.Task {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	return &model.Task{
		ID:     testULID,
		Name:   "beijing-roads",
		Status: status,
		Config: model.TaskConfig{
			Name:        "beijing-roads",
			Platform:    platform.OSM,
			Layer:       model.LayerRoadmap,
			Bounds:      model.Bounds{North: 40.1, South: 39.8, East: 116.6, West: 116.2},
			Zooms:       []int{10, 11},
			OutputPath:  "/tmp/beijing",
			Container:   model.ContainerFolder,
			Parallelism: 4,
			RetryBudget: 3,
		},
		TotalTiles: 42,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config start.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: start.ServiceConfig{
				Engine:     &enginemock.MockEngine{},
				Repository: &storagemock.MockRepository{},
				Registry:   platform.NewRegistry(),
				Logger:     log.Noop,
			},
			expErr: false,
		},
		"missing engine should fail": {
			config: start.ServiceConfig{
				Repository: &storagemock.MockRepository{},
				Registry:   platform.NewRegistry(),
			},
			expErr: true,
		},
		"missing repository should fail": {
			config: start.ServiceConfig{
				Engine:   &enginemock.MockEngine{},
				Registry: platform.NewRegistry(),
			},
			expErr: true,
		},
		"missing registry should fail": {
			config: start.ServiceConfig{
				Engine:     &enginemock.MockEngine{},
				Repository: &storagemock.MockRepository{},
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			svc, err := start.NewService(test.config)
			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	tests := map[string]struct {
		mockRepo   func(m *storagemock.MockRepository)
		mockEngine func(m *enginemock.MockEngine)
		req        start.Request
		expErr     bool
		expErrIs   error
	}{
		"start a pending task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPending), nil)
				m.On("UpdateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Status == model.TaskStatusDownloading
				})).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Start", mock.Anything, testULID).Once().Return(nil)
			},
			req: start.Request{NameOrID: "beijing-roads"},
		},
		"resume a paused task keeps its counters": {
			mockRepo: func(m *storagemock.MockRepository) {
				task := testTask(model.TaskStatusPaused)
				task.CompletedTiles = 20
				task.FailedTiles = 2
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(task, nil)
				m.On("UpdateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Status == model.TaskStatusDownloading &&
						task.CompletedTiles == 20 &&
						task.FailedTiles == 2
				})).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Start", mock.Anything, testULID).Once().Return(nil)
			},
			req: start.Request{NameOrID: "beijing-roads"},
		},
		"start by ID when the name lookup misses": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, testULID).Once().Return(nil, model.ErrNotFound)
				m.On("GetTask", mock.Anything, testULID).Once().Return(testTask(model.TaskStatusPending), nil)
				m.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Start", mock.Anything, testULID).Once().Return(nil)
			},
			req: start.Request{NameOrID: testULID},
		},
		"cannot start an already downloading task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        start.Request{NameOrID: "beijing-roads"},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"cannot start a completed task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusCompleted), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        start.Request{NameOrID: "beijing-roads"},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"a credential that went missing blocks the start": {
			mockRepo: func(m *storagemock.MockRepository) {
				task := testTask(model.TaskStatusPending)
				task.Config.Platform = platform.Tianditu
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(task, nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        start.Request{NameOrID: "beijing-roads"},
			expErr:     true,
			expErrIs:   model.ErrNotValid,
		},
		"task not found": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        start.Request{NameOrID: "nonexistent"},
			expErr:     true,
			expErrIs:   model.ErrNotFound,
		},
		"engine error propagates": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPending), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Start", mock.Anything, testULID).Once().Return(fmt.Errorf("engine error"))
			},
			req:    start.Request{NameOrID: "beijing-roads"},
			expErr: true,
		},
		"persist failure pauses the started download": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPending), nil)
				m.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("database error"))
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Start", mock.Anything, testULID).Once().Return(nil)
				m.On("Pause", mock.Anything, testULID).Once().Return(nil)
			},
			req:    start.Request{NameOrID: "beijing-roads"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mRepo := &storagemock.MockRepository{}
			mEngine := &enginemock.MockEngine{}
			test.mockRepo(mRepo)
			test.mockEngine(mEngine)

			svc, err := start.NewService(start.ServiceConfig{
				Engine:     mEngine,
				Repository: mRepo,
				Registry:   platform.NewRegistry(),
				Logger:     log.Noop,
			})
			require.NoError(err)

			result, err := svc.Run(context.Background(), test.req)

			if test.expErr {
				assert.Error(err)
				if test.expErrIs != nil {
					assert.ErrorIs(err, test.expErrIs)
				}
			} else {
				assert.NoError(err)
				require.NotNil(result)
				assert.Equal(model.TaskStatusDownloading, result.Status)
			}

			mRepo.AssertExpectations(t)
			mEngine.AssertExpectations(t)
		})
	}
}
