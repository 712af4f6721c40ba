package convert_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/convert"
	"github.com/slok/tilegrab/internal/container"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

func writeSourceFolder(t *testing.T, path string) map[tile.Coord][]byte {
	t.Helper()
	require := require.New(t)

	tiles := map[tile.Coord][]byte{
		{Z: 1, X: 0, Y: 0}: []byte("tile-a"),
		{Z: 1, X: 1, Y: 0}: []byte("tile-b"),
		{Z: 2, X: 3, Y: 1}: []byte("tile-c"),
	}

	w, err := container.NewWriter(model.ContainerFolder, path)
	require.NoError(err)
	for c, data := range tiles {
		require.NoError(w.Put(context.Background(), c, data))
	}
	require.NoError(w.Finalize(context.Background()))
	require.NoError(w.Close())

	return tiles
}

func TestService_Run(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "tiles")
	dstPath := filepath.Join(dir, "tiles.mbtiles")
	expTiles := writeSourceFolder(t, srcPath)

	svc, err := convert.NewService(convert.ServiceConfig{Logger: log.Noop})
	require.NoError(err)

	// Kinds are detected from the paths.
	result, err := svc.Run(context.Background(), convert.Request{
		SourcePath: srcPath,
		TargetPath: dstPath,
	})

	require.NoError(err)
	assert.Equal(int64(len(expTiles)), result.Tiles)
	assert.Equal(model.ContainerMBTiles, result.TargetKind)

	// The target must hold exactly the source tiles.
	r, err := container.NewReader(model.ContainerMBTiles, dstPath)
	require.NoError(err)
	defer r.Close()

	got := map[tile.Coord][]byte{}
	err = r.ForEach(context.Background(), func(c tile.Coord, data []byte) error {
		got[c] = data
		return nil
	})
	require.NoError(err)
	assert.Equal(expTiles, got)
}

func TestService_RunExplicitKinds(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "tiles")
	dstPath := filepath.Join(dir, "archived")
	writeSourceFolder(t, srcPath)

	svc, err := convert.NewService(convert.ServiceConfig{Logger: log.Noop})
	require.NoError(err)

	result, err := svc.Run(context.Background(), convert.Request{
		SourcePath: srcPath,
		TargetPath: dstPath,
		SourceKind: model.ContainerFolder,
		TargetKind: model.ContainerZip,
	})

	require.NoError(err)
	assert.Equal(int64(3), result.Tiles)
	assert.Equal(model.ContainerZip, result.TargetKind)
}

func TestService_RunValidation(t *testing.T) {
	tests := map[string]struct {
		req convert.Request
	}{
		"missing source path": {
			req: convert.Request{TargetPath: "/tmp/out.mbtiles"},
		},
		"missing target path": {
			req: convert.Request{SourcePath: "/tmp/tiles"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := convert.NewService(convert.ServiceConfig{})
			require.NoError(t, err)

			_, err = svc.Run(context.Background(), test.req)
			assert.ErrorIs(t, err, model.ErrNotValid)
		})
	}
}
