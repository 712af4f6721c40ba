package tile

import (
	"github.com/slok/tilegrab/internal/model"
)

// DefaultAvgTileBytes is the average tile size used for size estimates when
// none is configured. 20KiB matches typical raster tiles across providers.
const DefaultAvgTileBytes = 20 * 1024

// Estimator previews the tile count and download size of a bounds/zoom
// selection. It is pure and side-effect free, safe to call on every
// configuration change.
type Estimator struct {
	avgTileBytes int64
}

// NewEstimator creates an estimator. avgTileBytes <= 0 selects the default.
func NewEstimator(avgTileBytes int64) *Estimator {
	if avgTileBytes <= 0 {
		avgTileBytes = DefaultAvgTileBytes
	}
	return &Estimator{avgTileBytes: avgTileBytes}
}

// Estimate computes the exact tile count for the selection and a size
// approximation. ok is false when the selection is not computable (invalid
// bounds, empty zoom set or a negative zoom level): that means "no preview
// available", not an error.
func (e *Estimator) Estimate(b model.Bounds, zooms []int) (est model.TileEstimate, ok bool) {
	if !b.Valid() || len(zooms) == 0 {
		return model.TileEstimate{}, false
	}

	perZoom := make(map[int]int64, len(zooms))
	var total int64
	for _, z := range zooms {
		if z < 0 {
			return model.TileEstimate{}, false
		}
		count := RangeForBounds(b, z).Count()
		perZoom[z] = count
		total += count
	}

	return model.TileEstimate{
		TotalTiles:     total,
		PerZoom:        perZoom,
		EstimatedBytes: total * e.avgTileBytes,
	}, true
}
