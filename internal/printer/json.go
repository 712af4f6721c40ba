package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/tilegrab/internal/model"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a task in the list output (subset of fields).
type listItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Platform       string    `json:"platform"`
	Status         string    `json:"status"`
	TotalTiles     int64     `json:"total_tiles"`
	CompletedTiles int64     `json:"completed_tiles"`
	FailedTiles    int64     `json:"failed_tiles"`
	Percent        float64   `json:"percent"`
	CreatedAt      time.Time `json:"created_at"`
}

// statusOutput represents the full task status output.
type statusOutput struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	Platform       string       `json:"platform"`
	Layer          string       `json:"layer"`
	Bounds         boundsOutput `json:"bounds"`
	Zooms          []int        `json:"zooms"`
	OutputPath     string       `json:"output_path"`
	Container      string       `json:"container"`
	Parallelism    int          `json:"parallelism"`
	RetryBudget    int          `json:"retry_budget"`
	TotalTiles     int64        `json:"total_tiles"`
	CompletedTiles int64        `json:"completed_tiles"`
	FailedTiles    int64        `json:"failed_tiles"`
	Percent        float64      `json:"percent"`
	CurrentZoom    int          `json:"current_zoom"`
	Throughput     float64      `json:"throughput,omitempty"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CompletedAt    *time.Time   `json:"completed_at"`
}

// boundsOutput represents the geographic region output.
type boundsOutput struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// platformItem represents a tile platform in the platforms output.
type platformItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Layers      []string `json:"layers"`
	MinZoom     int      `json:"min_zoom"`
	MaxZoom     int      `json:"max_zoom"`
	RequiresKey bool     `json:"requires_key"`
}

// estimateOutput represents a tile estimate output.
type estimateOutput struct {
	TotalTiles     int64         `json:"total_tiles"`
	EstimatedBytes int64         `json:"estimated_bytes"`
	PerZoom        map[int]int64 `json:"per_zoom,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints tasks in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(tasks []model.Task) error {
	items := make([]listItem, len(tasks))
	for i, task := range tasks {
		items[i] = listItem{
			ID:             task.ID,
			Name:           task.Name,
			Platform:       task.Config.Platform,
			Status:         string(task.Status),
			TotalTiles:     task.TotalTiles,
			CompletedTiles: task.CompletedTiles,
			FailedTiles:    task.FailedTiles,
			Percent:        task.Percent(),
			CreatedAt:      task.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintStatus prints detailed task status in JSON format.
func (j *JSONPrinter) PrintStatus(task model.Task) error {
	output := statusOutput{
		ID:       task.ID,
		Name:     task.Name,
		Status:   string(task.Status),
		Platform: task.Config.Platform,
		Layer:    string(task.Config.Layer),
		Bounds: boundsOutput{
			North: task.Config.Bounds.North,
			South: task.Config.Bounds.South,
			East:  task.Config.Bounds.East,
			West:  task.Config.Bounds.West,
		},
		Zooms:          task.Config.Zooms,
		OutputPath:     task.Config.OutputPath,
		Container:      string(task.Config.Container),
		Parallelism:    task.Config.Parallelism,
		RetryBudget:    task.Config.RetryBudget,
		TotalTiles:     task.TotalTiles,
		CompletedTiles: task.CompletedTiles,
		FailedTiles:    task.FailedTiles,
		Percent:        task.Percent(),
		CurrentZoom:    task.CurrentZoom,
		Throughput:     task.Throughput,
		Error:          task.ErrorMessage,
		CreatedAt:      task.CreatedAt.UTC(),
		UpdatedAt:      task.UpdatedAt.UTC(),
		CompletedAt:    nil,
	}

	if task.CompletedAt != nil {
		utcTime := task.CompletedAt.UTC()
		output.CompletedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintPlatforms prints tile platforms in JSON format.
func (j *JSONPrinter) PrintPlatforms(platforms []model.Platform) error {
	items := make([]platformItem, len(platforms))
	for i, p := range platforms {
		layers := make([]string, len(p.Layers))
		for li, l := range p.Layers {
			layers[li] = string(l)
		}

		items[i] = platformItem{
			ID:          p.ID,
			Name:        p.Name,
			Layers:      layers,
			MinZoom:     p.MinZoom,
			MaxZoom:     p.MaxZoom,
			RequiresKey: p.RequiresKey,
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintEstimate prints a tile estimate in JSON format.
func (j *JSONPrinter) PrintEstimate(estimate model.TileEstimate) error {
	output := estimateOutput{
		TotalTiles:     estimate.TotalTiles,
		EstimatedBytes: estimate.EstimatedBytes,
		PerZoom:        estimate.PerZoom,
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
