// Package tile implements the web-mercator tile pyramid math: addressing
// tiles, projecting geographic coordinates onto the grid and enumerating the
// tiles covered by a geographic region.
package tile

import (
	"math"

	"github.com/slok/tilegrab/internal/model"
)

// MaxLatitude is the latitude limit of the web-mercator projection. Latitudes
// beyond it are clamped before projecting.
const MaxLatitude = 85.05112878

// Coord addresses a single tile in the pyramid.
type Coord struct {
	Z int
	X int
	Y int
}

// FromDegrees returns the tile containing the given point at zoom z.
// Longitude maps linearly to columns; latitude goes through the web-mercator
// projection to a row index. Results are clamped to the grid.
func FromDegrees(lat, lon float64, z int) Coord {
	n := float64(int64(1) << uint(z))

	if lat > MaxLatitude {
		lat = MaxLatitude
	}
	if lat < -MaxLatitude {
		lat = -MaxLatitude
	}

	x := int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y := int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	return clamp(Coord{Z: z, X: x, Y: y})
}

func clamp(c Coord) Coord {
	max := int(int64(1)<<uint(c.Z)) - 1
	if c.X < 0 {
		c.X = 0
	}
	if c.X > max {
		c.X = max
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.Y > max {
		c.Y = max
	}
	return c
}

// Range is an inclusive rectangle of tiles at a single zoom level.
type Range struct {
	Z    int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

// RangeForBounds returns the tiles whose footprint intersects the bounds at
// zoom z. Min/max indices are inclusive so partially covered edge tiles
// always count.
func RangeForBounds(b model.Bounds, z int) Range {
	// Row indices grow southward: the north-west corner gives the minimum
	// column and row, the south-east corner the maximum.
	nw := FromDegrees(b.North, b.West, z)
	se := FromDegrees(b.South, b.East, z)

	return Range{Z: z, MinX: nw.X, MaxX: se.X, MinY: nw.Y, MaxY: se.Y}
}

// Count returns the number of tiles in the range.
func (r Range) Count() int64 {
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return 0
	}
	return int64(r.MaxX-r.MinX+1) * int64(r.MaxY-r.MinY+1)
}

// ForEach calls fn for every tile in the range, row by row. It stops and
// returns the first error fn returns.
func (r Range) ForEach(fn func(c Coord) error) error {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			if err := fn(Coord{Z: r.Z, X: x, Y: y}); err != nil {
				return err
			}
		}
	}
	return nil
}
