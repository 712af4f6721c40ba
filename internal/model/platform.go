package model

// LayerType identifies a map layer kind a platform can serve.
type LayerType string

const (
	// LayerRoadmap is the standard street/vector layer.
	LayerRoadmap LayerType = "roadmap"
	// LayerSatellite is the satellite imagery layer.
	LayerSatellite LayerType = "satellite"
	// LayerHybrid is satellite imagery with road/label overlay.
	LayerHybrid LayerType = "hybrid"
	// LayerTerrain is the shaded terrain layer.
	LayerTerrain LayerType = "terrain"
)

// Platform describes the capabilities of a tile-serving platform. Platforms
// are immutable: loaded once at process start and shared read-only.
type Platform struct {
	ID          string
	Name        string
	Enabled     bool
	MinZoom     int
	MaxZoom     int
	Layers      []LayerType
	RequiresKey bool
}

// SupportsLayer reports whether the platform serves the given layer type.
func (p Platform) SupportsLayer(l LayerType) bool {
	for _, have := range p.Layers {
		if have == l {
			return true
		}
	}
	return false
}

// ValidZoom reports whether z is within the platform's zoom range.
func (p Platform) ValidZoom(z int) bool {
	return z >= p.MinZoom && z <= p.MaxZoom
}
