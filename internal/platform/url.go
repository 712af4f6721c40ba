package platform

import (
	"fmt"
	"strings"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

// TileURL renders the request URL for a single tile on the given platform.
// The mirror subdomain is derived from the tile address, so repeated calls
// for the same tile always hit the same mirror and load spreads evenly over
// a download run.
func TileURL(p model.Platform, layer model.LayerType, c tile.Coord, apiKey string) (string, error) {
	if !p.SupportsLayer(layer) {
		return "", fmt.Errorf("platform %q does not serve layer %q: %w", p.ID, layer, model.ErrNotValid)
	}
	if p.RequiresKey && apiKey == "" {
		return "", fmt.Errorf("platform %q requires an API key: %w", p.ID, model.ErrNotValid)
	}

	switch p.ID {
	case Google:
		return googleURL(layer, c), nil
	case OSM:
		return osmURL(c), nil
	case Bing:
		return bingURL(layer, c), nil
	case ArcGIS:
		return arcgisURL(layer, c), nil
	case Tianditu:
		return tiandituURL(layer, c, apiKey), nil
	case Amap:
		return amapURL(layer, c), nil
	case Tencent:
		return tencentURL(layer, c), nil
	case Baidu:
		return baiduURL(c), nil
	}

	return "", fmt.Errorf("platform %q has no URL builder: %w", p.ID, model.ErrNotValid)
}

// mirror picks a mirror index in [0, n) from the tile address.
func mirror(c tile.Coord, n int) int {
	return (c.X + c.Y) % n
}

func googleURL(layer model.LayerType, c tile.Coord) string {
	var lyrs string
	switch layer {
	case model.LayerSatellite:
		lyrs = "s"
	case model.LayerHybrid:
		lyrs = "y"
	case model.LayerTerrain:
		lyrs = "t"
	default:
		lyrs = "m"
	}

	return fmt.Sprintf("https://mt%d.google.com/vt/lyrs=%s&x=%d&y=%d&z=%d", mirror(c, 4), lyrs, c.X, c.Y, c.Z)
}

func osmURL(c tile.Coord) string {
	subs := []string{"a", "b", "c"}
	return fmt.Sprintf("https://%s.tile.openstreetmap.org/%d/%d/%d.png", subs[mirror(c, 3)], c.Z, c.X, c.Y)
}

func bingURL(layer model.LayerType, c tile.Coord) string {
	var kind string
	switch layer {
	case model.LayerSatellite:
		kind = "a"
	case model.LayerHybrid:
		kind = "h"
	default:
		kind = "r"
	}

	return fmt.Sprintf("https://ecn.t%d.tiles.virtualearth.net/tiles/%s%s.jpeg?g=1", mirror(c, 4), kind, quadkey(c))
}

// quadkey interleaves the x/y bits of a tile address into the quadtree key
// Bing uses instead of z/x/y.
func quadkey(c tile.Coord) string {
	var sb strings.Builder
	for i := c.Z; i > 0; i-- {
		d := byte('0')
		mask := 1 << (i - 1)
		if c.X&mask != 0 {
			d++
		}
		if c.Y&mask != 0 {
			d += 2
		}
		sb.WriteByte(d)
	}

	return sb.String()
}

func arcgisURL(layer model.LayerType, c tile.Coord) string {
	svc := "World_Street_Map"
	if layer == model.LayerSatellite {
		svc = "World_Imagery"
	}

	return fmt.Sprintf("https://server.arcgisonline.com/ArcGIS/rest/services/%s/MapServer/tile/%d/%d/%d", svc, c.Z, c.Y, c.X)
}

func tiandituURL(layer model.LayerType, c tile.Coord, apiKey string) string {
	var t string
	switch layer {
	case model.LayerSatellite:
		t = "img"
	case model.LayerTerrain:
		t = "ter"
	default:
		t = "vec"
	}

	return fmt.Sprintf("https://t%d.tianditu.gov.cn/DataServer?T=%s_w&x=%d&y=%d&l=%d&tk=%s", mirror(c, 8), t, c.X, c.Y, c.Z, apiKey)
}

func amapURL(layer model.LayerType, c tile.Coord) string {
	style := 7
	if layer == model.LayerSatellite {
		style = 6
	}

	return fmt.Sprintf("https://wprd0%d.is.autonavi.com/appmaptile?style=%d&x=%d&y=%d&z=%d", 1+mirror(c, 4), style, c.X, c.Y, c.Z)
}

// tencentURL flips the y axis: Tencent addresses tiles from the bottom-left
// corner (TMS) instead of the top-left one.
func tencentURL(layer model.LayerType, c tile.Coord) string {
	ty := (1 << c.Z) - 1 - c.Y
	if layer == model.LayerSatellite {
		return fmt.Sprintf("https://p%d.map.gtimg.com/sateTiles/%d/%d/%d/%d_%d.jpg", mirror(c, 4), c.Z, c.X>>4, ty>>4, c.X, ty)
	}

	return fmt.Sprintf("https://rt%d.map.gtimg.com/realtimerender?z=%d&x=%d&y=%d&type=vector&style=0", mirror(c, 4), c.Z, c.X, ty)
}

// baiduURL recenters the tile address: Baidu counts tiles from the grid
// center, with y growing northwards.
func baiduURL(c tile.Coord) string {
	half := 1 << (c.Z - 1)
	bx := c.X - half
	by := half - 1 - c.Y

	return fmt.Sprintf("https://maponline%d.bdimg.com/onlinelabel/?qt=tile&x=%d&y=%d&z=%d&styles=pl", mirror(c, 4), bx, by, c.Z)
}
