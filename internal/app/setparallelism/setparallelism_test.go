package setparallelism_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/setparallelism"
	"github.com/slok/tilegrab/internal/engine/enginemock"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage/storagemock"
)

const testULID = "01H2QWERTYASDFGZXCVBNMLKJH"

func testTask(status model.TaskStatus) *model.Task {
	return &model.Task{
		ID:     testULID,
		Name:   "beijing-roads",
		Status: status,
		Config: model.TaskConfig{Parallelism: 8},
	}
}

func TestService_Run(t *testing.T) {
	tests := map[string]struct {
		mockRepo   func(m *storagemock.MockRepository)
		mockEngine func(m *enginemock.MockEngine)
		req        setparallelism.Request
		expErr     bool
		expErrIs   error
	}{
		"adjust a downloading task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
				m.On("UpdateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Config.Parallelism == 16 && task.Status == model.TaskStatusDownloading
				})).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("SetParallelism", mock.Anything, testULID, 16).Once().Return(nil)
			},
			req: setparallelism.Request{NameOrID: "beijing-roads", Parallelism: 16},
		},
		"the range boundaries are accepted": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
				m.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("SetParallelism", mock.Anything, testULID, model.MaxParallelism).Once().Return(nil)
			},
			req: setparallelism.Request{NameOrID: "beijing-roads", Parallelism: model.MaxParallelism},
		},
		"zero is rejected before any lookup": {
			mockRepo:   func(m *storagemock.MockRepository) {},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        setparallelism.Request{NameOrID: "beijing-roads", Parallelism: 0},
			expErr:     true,
			expErrIs:   model.ErrOutOfRange,
		},
		"values above the ceiling are rejected, not clamped": {
			mockRepo:   func(m *storagemock.MockRepository) {},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        setparallelism.Request{NameOrID: "beijing-roads", Parallelism: model.MaxParallelism + 1},
			expErr:     true,
			expErrIs:   model.ErrOutOfRange,
		},
		"cannot adjust a paused task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPaused), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        setparallelism.Request{NameOrID: "beijing-roads", Parallelism: 16},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"cannot adjust a pending task": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusPending), nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        setparallelism.Request{NameOrID: "beijing-roads", Parallelism: 16},
			expErr:     true,
			expErrIs:   model.ErrIllegalState,
		},
		"task not found": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			mockEngine: func(m *enginemock.MockEngine) {},
			req:        setparallelism.Request{NameOrID: "nonexistent", Parallelism: 16},
			expErr:     true,
			expErrIs:   model.ErrNotFound,
		},
		"engine error propagates": {
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(testTask(model.TaskStatusDownloading), nil)
				m.On("UpdateTask", mock.Anything, mock.Anything).Once().Return(nil)
			},
			mockEngine: func(m *enginemock.MockEngine) {
				m.On("SetParallelism", mock.Anything, testULID, 16).Once().Return(fmt.Errorf("engine error"))
			},
			req:    setparallelism.Request{NameOrID: "beijing-roads", Parallelism: 16},
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

			svc, err := setparallelism.NewService(setparallelism.ServiceConfig{
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
				assert.Equal(test.req.Parallelism, result.Config.Parallelism)
			}

			mRepo.AssertExpectations(t)
			mEngine.AssertExpectations(t)
		})
	}
}
