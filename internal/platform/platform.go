// Package platform holds the catalog of tile providers the downloader knows
// how to talk to, and builds the per-tile request URL for each of them.
package platform

import (
	"fmt"

	"github.com/slok/tilegrab/internal/model"
)

// IDs of the built-in platforms.
const (
	Google   = "google"
	OSM      = "osm"
	Bing     = "bing"
	ArcGIS   = "arcgis"
	Tianditu = "tianditu"
	Amap     = "amap"
	Tencent  = "tencent"
	Baidu    = "baidu"
)

// Registry indexes the known tile platforms by ID.
type Registry struct {
	byID  map[string]model.Platform
	order []string
}

// NewRegistry returns a registry preloaded with all built-in platforms.
func NewRegistry() *Registry {
	r := &Registry{byID: map[string]model.Platform{}}
	for _, p := range builtins() {
		r.register(p)
	}

	return r
}

func (r *Registry) register(p model.Platform) {
	if _, ok := r.byID[p.ID]; ok {
		return
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
}

// Get returns the platform with the given ID.
func (r *Registry) Get(id string) (model.Platform, error) {
	p, ok := r.byID[id]
	if !ok {
		return model.Platform{}, fmt.Errorf("platform %q: %w", id, model.ErrNotFound)
	}

	return p, nil
}

// List returns every known platform in registration order.
func (r *Registry) List() []model.Platform {
	ps := make([]model.Platform, 0, len(r.order))
	for _, id := range r.order {
		ps = append(ps, r.byID[id])
	}

	return ps
}

func builtins() []model.Platform {
	return []model.Platform{
		{
			ID: Google, Name: "Google Maps", Enabled: true,
			MinZoom: 0, MaxZoom: 22,
			Layers: []model.LayerType{model.LayerRoadmap, model.LayerSatellite, model.LayerHybrid, model.LayerTerrain},
		},
		{
			ID: OSM, Name: "OpenStreetMap", Enabled: true,
			MinZoom: 0, MaxZoom: 19,
			Layers: []model.LayerType{model.LayerRoadmap},
		},
		{
			ID: Bing, Name: "Bing Maps", Enabled: true,
			MinZoom: 1, MaxZoom: 20,
			Layers: []model.LayerType{model.LayerRoadmap, model.LayerSatellite, model.LayerHybrid},
		},
		{
			ID: ArcGIS, Name: "Esri ArcGIS Online", Enabled: true,
			MinZoom: 0, MaxZoom: 19,
			Layers: []model.LayerType{model.LayerRoadmap, model.LayerSatellite},
		},
		{
			ID: Tianditu, Name: "Tianditu", Enabled: true,
			MinZoom: 1, MaxZoom: 18,
			Layers:      []model.LayerType{model.LayerRoadmap, model.LayerSatellite, model.LayerTerrain},
			RequiresKey: true,
		},
		{
			ID: Amap, Name: "Amap (Gaode)", Enabled: true,
			MinZoom: 3, MaxZoom: 18,
			Layers: []model.LayerType{model.LayerRoadmap, model.LayerSatellite},
		},
		{
			ID: Tencent, Name: "Tencent Maps", Enabled: true,
			MinZoom: 3, MaxZoom: 18,
			Layers: []model.LayerType{model.LayerRoadmap, model.LayerSatellite},
		},
		{
			ID: Baidu, Name: "Baidu Maps", Enabled: true,
			MinZoom: 3, MaxZoom: 18,
			Layers: []model.LayerType{model.LayerRoadmap},
		},
	}
}
