package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/storage/sqlite"
	"github.com/slok/tilegrab/internal/tile"
)

func taskFixture(id, name string) model.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return model.Task{
		ID:     id,
		Name:   name,
		Status: model.TaskStatusPending,
		Config: model.TaskConfig{
			Name:        name,
			Platform:    "google",
			Layer:       model.LayerSatellite,
			Bounds:      model.Bounds{North: 40.1, South: 39.8, East: 116.6, West: 116.2},
			Zooms:       []int{10, 11, 12},
			OutputPath:  "/downloads/" + name + ".mbtiles",
			Container:   model.ContainerMBTiles,
			Parallelism: 8,
			RetryBudget: 3,
			APIKey:      "secret",
		},
		TotalTiles: 42,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newJournal(t *testing.T, repo *sqlite.Repository) *sqlite.Journal {
	t.Helper()
	journal, err := sqlite.NewJournal(sqlite.JournalConfig{
		DB:     repo.DB(),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	return journal
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	task := taskFixture("id-1", "beijing-sat")
	require.NoError(t, repo.CreateTask(ctx, task))

	got, err := repo.GetTask(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "beijing-sat", got.Name)
	assert.Equal(t, "google", got.Config.Platform)
	assert.Equal(t, model.LayerSatellite, got.Config.Layer)
	assert.Equal(t, []int{10, 11, 12}, got.Config.Zooms)
	assert.Equal(t, model.Bounds{North: 40.1, South: 39.8, East: 116.6, West: 116.2}, got.Config.Bounds)
	assert.Equal(t, model.ContainerMBTiles, got.Config.Container)
	assert.Equal(t, "secret", got.Config.APIKey)
	assert.Equal(t, int64(42), got.TotalTiles)
	assert.Nil(t, got.CompletedAt)

	gotByName, err := repo.GetTaskByName(ctx, "beijing-sat")
	require.NoError(t, err)
	assert.Equal(t, "id-1", gotByName.ID)

	all, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	now := time.Now().UTC().Truncate(time.Second)
	task.Status = model.TaskStatusCompleted
	task.CompletedTiles = 40
	task.FailedTiles = 2
	task.CompletedAt = &now
	require.NoError(t, repo.UpdateTask(ctx, task))

	updated, err := repo.GetTask(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, updated.Status)
	assert.Equal(t, int64(40), updated.CompletedTiles)
	assert.Equal(t, int64(2), updated.FailedTiles)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, now, *updated.CompletedAt)

	require.NoError(t, repo.DeleteTask(ctx, "id-1"))
	_, err = repo.GetTask(ctx, "id-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRepositoryConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	task := taskFixture("id-1", "task-1")
	require.NoError(t, repo.CreateTask(ctx, task))

	dupID := taskFixture("id-1", "task-2")
	err := repo.CreateTask(ctx, dupID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAlreadyExists))

	dupName := taskFixture("id-2", "task-1")
	err = repo.CreateTask(ctx, dupName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAlreadyExists))

	nonExistent := taskFixture("id-x", "task-x")
	err = repo.UpdateTask(ctx, nonExistent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	err = repo.DeleteTask(ctx, "id-x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRepositoryNormalizesInterruptedTasks(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath, Logger: log.Noop})
	require.NoError(t, err)

	interrupted := taskFixture("id-1", "interrupted")
	interrupted.Status = model.TaskStatusDownloading
	require.NoError(t, repo.CreateTask(ctx, interrupted))

	untouched := taskFixture("id-2", "untouched")
	untouched.Status = model.TaskStatusCompleted
	require.NoError(t, repo.CreateTask(ctx, untouched))

	require.NoError(t, repo.Close())

	// Reopening the store simulates a process restart.
	repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath, Logger: log.Noop})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	got, err := repo.GetTask(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPaused, got.Status)

	got, err = repo.GetTask(ctx, "id-2")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	journal := newJournal(t, repo)

	require.NoError(t, repo.CreateTask(ctx, taskFixture("id-1", "task-1")))

	err := journal.SeedTiles(ctx, "id-1", []tile.Range{
		{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1},
		{Z: 2, MinX: 0, MaxX: 0, MinY: 0, MaxY: 0},
	})
	require.NoError(t, err)

	counts, err := journal.TileCounts(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, storage.TileCounts{Pending: 5}, counts)

	// Pending tiles come back shallow zoom first, capped at the limit.
	coords, err := journal.PendingTiles(ctx, "id-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []tile.Coord{{Z: 1, X: 0, Y: 0}, {Z: 1, X: 0, Y: 1}, {Z: 1, X: 1, Y: 0}}, coords)

	require.NoError(t, journal.MarkTile(ctx, "id-1", tile.Coord{Z: 1, X: 0, Y: 0}, storage.TileStatusCompleted))
	require.NoError(t, journal.MarkTile(ctx, "id-1", tile.Coord{Z: 1, X: 0, Y: 1}, storage.TileStatusFailed))

	counts, err = journal.TileCounts(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, storage.TileCounts{Pending: 3, Completed: 1, Failed: 1}, counts)

	// Reseeding must not undo any mark.
	err = journal.SeedTiles(ctx, "id-1", []tile.Range{{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}})
	require.NoError(t, err)
	counts, err = journal.TileCounts(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, storage.TileCounts{Pending: 3, Completed: 1, Failed: 1}, counts)

	n, err := journal.ResetFailedTiles(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err = journal.TileCounts(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, storage.TileCounts{Pending: 4, Completed: 1}, counts)

	err = journal.MarkTile(ctx, "id-1", tile.Coord{Z: 9, X: 9, Y: 9}, storage.TileStatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestJournalCascadesWithTask(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	journal := newJournal(t, repo)

	require.NoError(t, repo.CreateTask(ctx, taskFixture("id-1", "task-1")))
	require.NoError(t, journal.SeedTiles(ctx, "id-1", []tile.Range{{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}}))

	require.NoError(t, repo.DeleteTask(ctx, "id-1"))

	counts, err := journal.TileCounts(ctx, "id-1")
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}
