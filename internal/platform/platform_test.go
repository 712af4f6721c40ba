package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/tile"
)

func TestRegistryGet(t *testing.T) {
	tests := map[string]struct {
		id     string
		expErr bool
	}{
		"a known platform is returned":      {id: platform.Google},
		"another known platform works too":  {id: platform.Tianditu},
		"an unknown platform returns error": {id: "mapzilla", expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := platform.NewRegistry().Get(test.id)

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.id, p.ID)
			assert.True(t, p.Enabled)
		})
	}
}

func TestRegistryList(t *testing.T) {
	assert := assert.New(t)

	ps := platform.NewRegistry().List()

	require.Len(t, ps, 8)
	assert.Equal(platform.Google, ps[0].ID)
	assert.Equal(platform.Baidu, ps[7].ID)

	// Listing must be stable run over run.
	again := platform.NewRegistry().List()
	assert.Equal(ps, again)
}

func TestTileURL(t *testing.T) {
	reg := platform.NewRegistry()
	mustGet := func(id string) model.Platform {
		p, err := reg.Get(id)
		require.NoError(t, err)
		return p
	}

	// A mid-zoom tile over Beijing used by most cases below.
	beijing := tile.Coord{Z: 10, X: 843, Y: 388}

	tests := map[string]struct {
		platform model.Platform
		layer    model.LayerType
		coord    tile.Coord
		apiKey   string
		expURL   string
		expErr   bool
	}{
		"google roadmap": {
			platform: mustGet(platform.Google),
			layer:    model.LayerRoadmap,
			coord:    beijing,
			expURL:   "https://mt3.google.com/vt/lyrs=m&x=843&y=388&z=10",
		},

		"google satellite uses the s layer code": {
			platform: mustGet(platform.Google),
			layer:    model.LayerSatellite,
			coord:    beijing,
			expURL:   "https://mt3.google.com/vt/lyrs=s&x=843&y=388&z=10",
		},

		"osm spreads over the a b c mirrors": {
			platform: mustGet(platform.OSM),
			layer:    model.LayerRoadmap,
			coord:    tile.Coord{Z: 5, X: 16, Y: 10},
			expURL:   "https://c.tile.openstreetmap.org/5/16/10.png",
		},

		"bing addresses tiles by quadkey": {
			platform: mustGet(platform.Bing),
			layer:    model.LayerRoadmap,
			coord:    tile.Coord{Z: 3, X: 3, Y: 5},
			expURL:   "https://ecn.t0.tiles.virtualearth.net/tiles/r213.jpeg?g=1",
		},

		"arcgis satellite swaps x and y in the path": {
			platform: mustGet(platform.ArcGIS),
			layer:    model.LayerSatellite,
			coord:    beijing,
			expURL:   "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/10/388/843",
		},

		"tianditu includes the API key": {
			platform: mustGet(platform.Tianditu),
			layer:    model.LayerRoadmap,
			coord:    beijing,
			apiKey:   "k123",
			expURL:   "https://t7.tianditu.gov.cn/DataServer?T=vec_w&x=843&y=388&l=10&tk=k123",
		},

		"tianditu without an API key fails": {
			platform: mustGet(platform.Tianditu),
			layer:    model.LayerRoadmap,
			coord:    beijing,
			expErr:   true,
		},

		"amap satellite uses style 6": {
			platform: mustGet(platform.Amap),
			layer:    model.LayerSatellite,
			coord:    beijing,
			expURL:   "https://wprd04.is.autonavi.com/appmaptile?style=6&x=843&y=388&z=10",
		},

		"tencent roadmap flips the y axis": {
			platform: mustGet(platform.Tencent),
			layer:    model.LayerRoadmap,
			coord:    beijing,
			expURL:   "https://rt3.map.gtimg.com/realtimerender?z=10&x=843&y=635&type=vector&style=0",
		},

		"tencent satellite groups tiles in 16x16 buckets": {
			platform: mustGet(platform.Tencent),
			layer:    model.LayerSatellite,
			coord:    beijing,
			expURL:   "https://p3.map.gtimg.com/sateTiles/10/52/39/843_635.jpg",
		},

		"baidu counts tiles from the grid center": {
			platform: mustGet(platform.Baidu),
			layer:    model.LayerRoadmap,
			coord:    beijing,
			expURL:   "https://maponline3.bdimg.com/onlinelabel/?qt=tile&x=331&y=123&z=10&styles=pl",
		},

		"a layer the platform does not serve fails": {
			platform: mustGet(platform.OSM),
			layer:    model.LayerSatellite,
			coord:    beijing,
			expErr:   true,
		},

		"a platform without a URL builder fails": {
			platform: model.Platform{ID: "mapzilla", Layers: []model.LayerType{model.LayerRoadmap}},
			layer:    model.LayerRoadmap,
			coord:    beijing,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			url, err := platform.TileURL(test.platform, test.layer, test.coord, test.apiKey)

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expURL, url)
		})
	}
}

func TestTileURLIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	reg := platform.NewRegistry()
	p, err := reg.Get(platform.Google)
	require.NoError(t, err)

	c := tile.Coord{Z: 12, X: 3370, Y: 1552}
	first, err := platform.TileURL(p, model.LayerRoadmap, c, "")
	require.NoError(t, err)
	second, err := platform.TileURL(p, model.LayerRoadmap, c, "")
	require.NoError(t, err)

	assert.Equal(first, second)
}
