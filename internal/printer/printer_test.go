package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/printer"
)

func taskFixture() model.Task {
	createdAt := time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)
	return model.Task{
		ID:     "01234567890ABCDEFGHIJKLMNOP",
		Name:   "beijing-satellite",
		Status: model.TaskStatusDownloading,
		Config: model.TaskConfig{
			Name:        "beijing-satellite",
			Platform:    "google",
			Layer:       model.LayerSatellite,
			Bounds:      model.Bounds{North: 40.2, South: 39.6, East: 117.0, West: 115.9},
			Zooms:       []int{10, 11, 12},
			OutputPath:  "/data/beijing.mbtiles",
			Container:   model.ContainerMBTiles,
			Parallelism: 16,
			RetryBudget: 3,
		},
		TotalTiles:     2048,
		CompletedTiles: 1024,
		FailedTiles:    2,
		CurrentZoom:    11,
		Throughput:     128,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt.Add(5 * time.Minute),
	}
}

func TestTablePrinterPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintStatus(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Platform:     google (satellite)")
	assert.Contains(t, out, "Output:       /data/beijing.mbtiles (mbtiles)")
	assert.Contains(t, out, "Progress:     1,024/2,048 (50.0%)")
	assert.Contains(t, out, "Zoom:         11")
	assert.Contains(t, out, "Throughput:   128.0 tiles/s")
	assert.Contains(t, out, "ETA:          8s")
}

func TestTablePrinterPrintStatusPaused(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	task := taskFixture()
	task.Status = model.TaskStatusPaused

	err := p.PrintStatus(task)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "Zoom:")
	assert.NotContains(t, out, "ETA:")
}

func TestJSONPrinterPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintStatus(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"platform": "google"`)
	assert.Contains(t, out, `"layer": "satellite"`)
	assert.Contains(t, out, `"completed_tiles": 1024`)
	assert.Contains(t, out, `"percent": 50`)
}

func TestTablePrinterPrintList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintList([]model.Task{taskFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "PROGRESS")
	assert.Contains(t, out, "beijing-satellite")
	assert.Contains(t, out, "1,024/2,048 (50.0%)")
}

func TestTablePrinterPrintPlatforms(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintPlatforms([]model.Platform{
		{
			ID:      "osm",
			Name:    "OpenStreetMap",
			Enabled: true,
			MinZoom: 0,
			MaxZoom: 19,
			Layers:  []model.LayerType{model.LayerRoadmap},
		},
		{
			ID:          "tianditu",
			Name:        "Tianditu",
			Enabled:     true,
			MinZoom:     1,
			MaxZoom:     18,
			Layers:      []model.LayerType{model.LayerRoadmap, model.LayerSatellite},
			RequiresKey: true,
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "OpenStreetMap")
	assert.Contains(t, out, "0-19")
	assert.Contains(t, out, "roadmap,satellite")
	assert.Contains(t, out, "yes")
}

func TestTablePrinterPrintEstimate(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintEstimate(model.TileEstimate{
		TotalTiles:     1280,
		PerZoom:        map[int]int64{10: 256, 11: 1024},
		EstimatedBytes: 1280 * 20 * 1024,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Tiles:          1,280")
	assert.Contains(t, out, "Estimated size: 25.0 MB")
	assert.Contains(t, out, "z10")
	assert.Contains(t, out, "256 tiles")
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
