package printer

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints tasks in a table format.
func (t *TablePrinter) PrintList(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tPLATFORM\tSTATUS\tPROGRESS\tFAILED\tCREATED")

	// Print rows
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			task.Name,
			task.Config.Platform,
			task.Status,
			formatProgress(task),
			FormatCount(task.FailedTiles),
			TimeAgo(task.CreatedAt),
		)
	}

	return nil
}

// PrintStatus prints detailed task status.
func (t *TablePrinter) PrintStatus(task model.Task) error {
	fmt.Fprintf(t.writer, "Name:         %s\n", task.Name)
	fmt.Fprintf(t.writer, "ID:           %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:       %s\n", task.Status)
	fmt.Fprintf(t.writer, "Platform:     %s (%s)\n", task.Config.Platform, task.Config.Layer)
	fmt.Fprintf(t.writer, "Region:       N%.4f S%.4f E%.4f W%.4f\n",
		task.Config.Bounds.North, task.Config.Bounds.South, task.Config.Bounds.East, task.Config.Bounds.West)
	fmt.Fprintf(t.writer, "Zooms:        %s\n", tile.FormatZoomSet(task.Config.Zooms))
	fmt.Fprintf(t.writer, "Output:       %s (%s)\n", task.Config.OutputPath, task.Config.Container)
	fmt.Fprintf(t.writer, "Parallelism:  %d\n", task.Config.Parallelism)
	fmt.Fprintf(t.writer, "Progress:     %s\n", formatProgress(task))
	fmt.Fprintf(t.writer, "Failed:       %s\n", FormatCount(task.FailedTiles))

	// Live download info only makes sense while the backend is fetching.
	if task.Status == model.TaskStatusDownloading {
		fmt.Fprintf(t.writer, "Zoom:         %d\n", task.CurrentZoom)
		if task.Throughput > 0 {
			fmt.Fprintf(t.writer, "Throughput:   %.1f tiles/s\n", task.Throughput)
			remaining := task.TotalTiles - task.CompletedTiles - task.FailedTiles
			fmt.Fprintf(t.writer, "ETA:          %s\n", FormatETA(remaining, task.Throughput))
		}
	}

	if task.ErrorMessage != "" {
		fmt.Fprintf(t.writer, "Error:        %s\n", task.ErrorMessage)
	}

	fmt.Fprintf(t.writer, "Created:      %s\n", FormatTimestamp(task.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:      %s\n", FormatTimestamp(task.UpdatedAt))

	if task.CompletedAt != nil {
		fmt.Fprintf(t.writer, "Completed:    %s\n", FormatTimestamp(*task.CompletedAt))
	}

	return nil
}

// PrintPlatforms prints tile platforms in a table format.
func (t *TablePrinter) PrintPlatforms(platforms []model.Platform) error {
	if len(platforms) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "ID\tNAME\tLAYERS\tZOOMS\tKEY")

	// Print rows.
	for _, p := range platforms {
		layers := make([]string, len(p.Layers))
		for i, l := range p.Layers {
			layers[i] = string(l)
		}

		key := "no"
		if p.RequiresKey {
			key = "yes"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%s\n",
			p.ID, p.Name, strings.Join(layers, ","), p.MinZoom, p.MaxZoom, key)
	}

	return nil
}

// PrintEstimate prints a tile estimate with its per-zoom breakdown.
func (t *TablePrinter) PrintEstimate(estimate model.TileEstimate) error {
	fmt.Fprintf(t.writer, "Tiles:          %s\n", FormatCount(estimate.TotalTiles))
	fmt.Fprintf(t.writer, "Estimated size: %s\n", FormatBytes(estimate.EstimatedBytes))

	if len(estimate.PerZoom) == 0 {
		return nil
	}

	zooms := make([]int, 0, len(estimate.PerZoom))
	for z := range estimate.PerZoom {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)

	fmt.Fprintln(t.writer, "Per zoom:")
	for _, z := range zooms {
		fmt.Fprintf(t.writer, "  z%-4d %s tiles\n", z, FormatCount(estimate.PerZoom[z]))
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func formatProgress(task model.Task) string {
	return fmt.Sprintf("%s/%s (%.1f%%)",
		FormatCount(task.CompletedTiles), FormatCount(task.TotalTiles), task.Percent())
}
