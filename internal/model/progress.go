package model

import "time"

// ProgressEvent is one cumulative progress report from the download backend.
// Counts are cumulative, never deltas, so delivery order does not matter as
// long as consumers merge monotonically.
type ProgressEvent struct {
	TaskID string

	Completed int64
	Failed    int64
	// Total echoes the backend's view of the tile count. The task record's
	// frozen total stays authoritative when they disagree.
	Total int64

	Throughput  float64
	CurrentZoom int

	// Status echoes the backend-observed task status.
	Status TaskStatus
	// Message carries a human-readable detail, set at least on fatal errors.
	Message string

	At time.Time
}

// TileEstimate is the result of previewing a bounds/zoom selection.
type TileEstimate struct {
	TotalTiles int64
	PerZoom    map[int]int64
	// EstimatedBytes multiplies the tile count by a fixed average tile
	// size. An approximation for preview, never a guarantee.
	EstimatedBytes int64
}
