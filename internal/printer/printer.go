package printer

import "github.com/slok/tilegrab/internal/model"

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintList(tasks []model.Task) error
	PrintStatus(task model.Task) error
	PrintPlatforms(platforms []model.Platform) error
	PrintEstimate(estimate model.TileEstimate) error
	PrintMessage(msg string) error
}
