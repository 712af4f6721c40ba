package pause_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/pause"
	"github.com/slok/tilegrab/internal/engine/enginemock"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage/storagemock"
)

const testULID = "01H2QWERTYASDFGZXCVBNMLKJH"

func testTask(status model.TaskStatus) *model.Task {
	return &model.Task{
		ID:             testULID,
		Name:           "beijing-roads",
		Status:         status,
		TotalTiles:     100,
		CompletedTiles: 40,
		FailedTiles:    1,
	}
}

func TestService_Run(t *testing.T) {
	tests := map[string]struct {
		mockRepo   func(m *storagemock.MockRepository)
		mockEngine func(m *enginemock.MockEngine)
		req        pause.Request
		expErr     bool
		expErrIs   error
	}{
		"pause a downloading task keeps its counters": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
				m.On("UpdateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Status == model.TaskStatusPaused &&
						task.CompletedTiles == 40 &&
						task.FailedTiles == 1
				})).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Pause", mock.Anything, testULID).Once().Return(nil)
			},
			req: pause.Request{NameOrID: "beijing-roads"},
		},
		"cannot pause a pending task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPending), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        pause.Request{NameOrID: "beijing-roads"},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"cannot pause an already paused task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPaused), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        pause.Request{NameOrID: "beijing-roads"},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"task not found": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        pause.Request{NameOrID: "nonexistent"},
			expErr:     true,
			expErrIs:   model.ErrNotFound,
		},
		"engine error propagates": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Pause", mock.Anything, testULID).Once().Return(fmt.Errorf("engine error"))
			},
			req:    pause.Request{NameOrID: "beijing-roads"},
			expErr: true,
		},
		"repository update error propagates": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
				m.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("database error"))
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("Pause", mock.Anything, testULID).Once().Return(nil)
			},
			req:    pause.Request{NameOrID: "beijing-roads"},
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

			svc, err := pause.NewService(pause.ServiceConfig{
				Engine:     mEngine,
				Repository: mRepo,
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
				assert.Equal(model.TaskStatusPaused, result.Status)
			}

			mRepo.AssertExpectations(t)
			mEngine.AssertExpectations(t)
		})
	}
}
