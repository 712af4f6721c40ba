package create_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/create"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage/storagemock"
	"github.com/slok/tilegrab/internal/tile"
)

func validConfig() model.TaskConfig {
	return model.TaskConfig{
		Name:        "beijing-roads",
		Platform:    platform.OSM,
		Layer:       model.LayerRoadmap,
		Bounds:      model.Bounds{North: 40.1, South: 39.8, East: 116.6, West: 116.2},
		Zooms:       []int{10, 11},
		OutputPath:  "/tmp/beijing",
		Container:   model.ContainerFolder,
		Parallelism: 4,
		RetryBudget: 3,
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config create.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: create.ServiceConfig{
				Repository: &storagemock.MockRepository{},
				Registry:   platform.NewRegistry(),
				Logger:     log.Noop,
			},
		},
		"missing repository should fail": {
			config: create.ServiceConfig{
				Registry: platform.NewRegistry(),
			},
			expErr: true,
		},
		"missing registry should fail": {
			config: create.ServiceConfig{
				Repository: &storagemock.MockRepository{},
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			svc, err := create.NewService(test.config)
			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	expTotal := func(cfg model.TaskConfig) int64 {
		est, ok := tile.NewEstimator(tile.DefaultAvgTileBytes).Estimate(cfg.Bounds, cfg.Zooms)
		require.True(t, ok)
		return est.TotalTiles
	}

	tests := map[string]struct {
		config   func() model.TaskConfig
		mockRepo func(m *storagemock.MockRepository)
		expErr   bool
		expErrIs error
	}{
		"create a valid task": {
			config: validConfig,
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(nil, model.ErrNotFound)
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Status == model.TaskStatusPending &&
						task.Name == "beijing-roads" &&
						task.TotalTiles == expTotal(validConfig()) &&
						task.CompletedTiles == 0 &&
						task.FailedTiles == 0 &&
						len(task.ID) == 26
				})).Once().Return(nil)
			},
		},
		"zero parallelism and empty container get defaults": {
			config: func() model.TaskConfig {
				cfg := validConfig()
				cfg.Parallelism = 0
				cfg.Container = ""
				cfg.OutputPath = "/tmp/beijing.mbtiles"
				return cfg
			},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(nil, model.ErrNotFound)
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Config.Parallelism == model.DefaultParallelism &&
						task.Config.Container == model.ContainerMBTiles
				})).Once().Return(nil)
			},
		},
		"unknown platform is a validation error": {
			config: func() model.TaskConfig {
				cfg := validConfig()
				cfg.Platform = "mapzen"
				return cfg
			},
			mockRepo: func(m *storagemock.MockRepository) {},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},
		"invalid bounds are a validation error": {
			config: func() model.TaskConfig {
				cfg := validConfig()
				cfg.Bounds = model.Bounds{North: 10, South: 20, East: 30, West: 40}
				return cfg
			},
			mockRepo: func(m *storagemock.MockRepository) {},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},
		"missing credential for a platform that requires one": {
			config: func() model.TaskConfig {
				cfg := validConfig()
				cfg.Platform = platform.Tianditu
				cfg.Zooms = []int{10, 11}
				return cfg
			},
			mockRepo: func(m *storagemock.MockRepository) {},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},
		"duplicated name is rejected": {
			config: validConfig,
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(&model.Task{ID: "x", Name: "beijing-roads"}, nil)
			},
			expErr:   true,
			expErrIs: model.ErrAlreadyExists,
		},
		"uniqueness check error propagates": {
			config: validConfig,
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(nil, fmt.Errorf("wanted error"))
			},
			expErr: true,
		},
		"repository save error propagates": {
			config: validConfig,
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetTaskByName", mock.Anything, "beijing-roads").Once().Return(nil, model.ErrNotFound)
				m.On("CreateTask", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("wanted error"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mRepo := &storagemock.MockRepository{}
			test.mockRepo(mRepo)

			svc, err := create.NewService(create.ServiceConfig{
				Repository: mRepo,
				Registry:   platform.NewRegistry(),
				Logger:     log.Noop,
			})
			require.NoError(err)

			task, err := svc.Create(context.Background(), create.CreateOptions{Config: test.config()})

			if test.expErr {
				assert.Error(err)
				if test.expErrIs != nil {
					assert.ErrorIs(err, test.expErrIs)
				}
			} else {
				assert.NoError(err)
				require.NotNil(task)
				assert.Equal(model.TaskStatusPending, task.Status)
				assert.Zero(task.CompletedTiles)
				assert.Zero(task.FailedTiles)
				assert.Positive(task.TotalTiles)
			}

			mRepo.AssertExpectations(t)
		})
	}
}
