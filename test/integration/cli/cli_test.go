package cli_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intcli "github.com/slok/tilegrab/test/integration/cli"
)

const cmdTimeout = 60 * time.Second

// newTestDB returns a fresh SQLite database path for test isolation.
func newTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test-tilegrab.db")
}

// uniqueName generates a unique task name for test isolation.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// listItem matches the JSON output of `tilegrab list --format json`.
type listItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Platform       string `json:"platform"`
	Status         string `json:"status"`
	TotalTiles     int64  `json:"total_tiles"`
	CompletedTiles int64  `json:"completed_tiles"`
}

// statusItem matches the JSON output of `tilegrab status --format json`.
type statusItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Platform       string `json:"platform"`
	Container      string `json:"container"`
	Parallelism    int    `json:"parallelism"`
	TotalTiles     int64  `json:"total_tiles"`
	CompletedTiles int64  `json:"completed_tiles"`
	FailedTiles    int64  `json:"failed_tiles"`
}

// platformItem matches the JSON output of `tilegrab platforms --format json`.
type platformItem struct {
	ID          string `json:"id"`
	MinZoom     int    `json:"min_zoom"`
	MaxZoom     int    `json:"max_zoom"`
	RequiresKey bool   `json:"requires_key"`
}

// estimateItem matches the JSON output of `tilegrab estimate --format json`.
type estimateItem struct {
	TotalTiles     int64         `json:"total_tiles"`
	EstimatedBytes int64         `json:"estimated_bytes"`
	PerZoom        map[int]int64 `json:"per_zoom"`
}

func TestCLIPlatforms(t *testing.T) {
	config := intcli.NewConfig(t)
	assert := assert.New(t)
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	stdout, stderr, err := intcli.RunPlatforms(ctx, config, newTestDB(t))
	require.NoError(err, "stderr: %s", stderr)

	var platforms []platformItem
	require.NoError(json.Unmarshal(stdout, &platforms))
	require.NotEmpty(platforms)

	byID := map[string]platformItem{}
	for _, p := range platforms {
		byID[p.ID] = p
	}

	osm, ok := byID["osm"]
	require.True(ok, "osm platform should be listed")
	assert.Equal(0, osm.MinZoom)
	assert.Equal(19, osm.MaxZoom)
	assert.False(osm.RequiresKey)
}

func TestCLIEstimate(t *testing.T) {
	config := intcli.NewConfig(t)
	assert := assert.New(t)
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	stdout, stderr, err := intcli.RunEstimate(ctx, config, newTestDB(t))
	require.NoError(err, "stderr: %s", stderr)

	var est estimateItem
	require.NoError(json.Unmarshal(stdout, &est))

	assert.Equal(int64(5), est.TotalTiles)
	assert.Equal(int64(1), est.PerZoom[0])
	assert.Equal(int64(4), est.PerZoom[1])
	assert.Greater(est.EstimatedBytes, int64(0))
}

func TestCLITaskLifecycle(t *testing.T) {
	config := intcli.NewConfig(t)
	assert := assert.New(t)
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	dbPath := newTestDB(t)
	name := uniqueName("lifecycle")
	output := filepath.Join(t.TempDir(), name)

	// Create.
	stdout, stderr, err := intcli.RunCreate(ctx, config, dbPath, name, output)
	require.NoError(err, "stderr: %s", stderr)
	assert.Contains(string(stdout), "Task created successfully!")

	// List should show it pending with a frozen tile total.
	stdout, stderr, err = intcli.RunList(ctx, config, dbPath)
	require.NoError(err, "stderr: %s", stderr)

	var tasks []listItem
	require.NoError(json.Unmarshal(stdout, &tasks))
	require.Len(tasks, 1)
	assert.Equal(name, tasks[0].Name)
	assert.Equal("pending", tasks[0].Status)
	assert.Equal(int64(5), tasks[0].TotalTiles)
	assert.Equal(int64(0), tasks[0].CompletedTiles)

	// Status by name shows the full record.
	stdout, stderr, err = intcli.RunStatus(ctx, config, dbPath, name)
	require.NoError(err, "stderr: %s", stderr)

	var status statusItem
	require.NoError(json.Unmarshal(stdout, &status))
	assert.Equal("osm", status.Platform)
	assert.Equal("folder", status.Container)
	assert.Greater(status.Parallelism, 0)

	// Start blocks until the fake run completes the task.
	_, stderr, err = intcli.RunStart(ctx, config, dbPath, name)
	require.NoError(err, "stderr: %s", stderr)

	stdout, stderr, err = intcli.RunStatus(ctx, config, dbPath, name)
	require.NoError(err, "stderr: %s", stderr)
	require.NoError(json.Unmarshal(stdout, &status))
	assert.Equal("completed", status.Status)
	assert.Equal(status.TotalTiles, status.CompletedTiles)
	assert.Equal(int64(0), status.FailedTiles)

	// Remove and verify gone.
	_, stderr, err = intcli.RunRm(ctx, config, dbPath, name)
	require.NoError(err, "stderr: %s", stderr)

	stdout, stderr, err = intcli.RunList(ctx, config, dbPath)
	require.NoError(err, "stderr: %s", stderr)
	require.NoError(json.Unmarshal(stdout, &tasks))
	assert.Len(tasks, 0)
}

func TestCLICreateDuplicate(t *testing.T) {
	config := intcli.NewConfig(t)
	assert := assert.New(t)
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	dbPath := newTestDB(t)
	name := uniqueName("dup")
	output := filepath.Join(t.TempDir(), name)

	_, stderr, err := intcli.RunCreate(ctx, config, dbPath, name, output)
	require.NoError(err, "stderr: %s", stderr)

	_, stderr, err = intcli.RunCreate(ctx, config, dbPath, name, output)
	assert.Error(err)
	assert.Contains(string(stderr), "already exists")
}

func TestCLIRemoveMissing(t *testing.T) {
	config := intcli.NewConfig(t)
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	_, stderr, err := intcli.RunRm(ctx, config, newTestDB(t), "does-not-exist")
	assert.Error(err)
	assert.Contains(string(stderr), "not found")
}
