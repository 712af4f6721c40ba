package container_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/container"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

var testTiles = map[tile.Coord][]byte{
	{Z: 1, X: 0, Y: 0}: []byte("tile-1-0-0"),
	{Z: 1, X: 1, Y: 0}: []byte("tile-1-1-0"),
	{Z: 2, X: 3, Y: 2}: []byte("tile-2-3-2"),
}

func containerPath(t *testing.T, kind model.ContainerKind) string {
	t.Helper()
	switch kind {
	case model.ContainerFolder:
		return filepath.Join(t.TempDir(), "tiles")
	case model.ContainerMBTiles:
		return filepath.Join(t.TempDir(), "tiles.mbtiles")
	default:
		return filepath.Join(t.TempDir(), "tiles.zip")
	}
}

func writeAll(ctx context.Context, t *testing.T, w container.Writer) {
	t.Helper()
	for c, data := range testTiles {
		require.NoError(t, w.Put(ctx, c, data))
	}
	require.NoError(t, w.Finalize(ctx))
	require.NoError(t, w.Close())
}

func readAll(ctx context.Context, t *testing.T, r container.Reader) map[tile.Coord][]byte {
	t.Helper()
	got := map[tile.Coord][]byte{}
	err := r.ForEach(ctx, func(c tile.Coord, data []byte) error {
		got[c] = data
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return got
}

func TestContainerRoundTrip(t *testing.T) {
	for _, kind := range []model.ContainerKind{model.ContainerFolder, model.ContainerMBTiles, model.ContainerZip} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			path := containerPath(t, kind)

			w, err := container.NewWriter(kind, path)
			require.NoError(t, err)
			writeAll(ctx, t, w)

			r, err := container.NewReader(kind, path)
			require.NoError(t, err)
			assert.Equal(t, testTiles, readAll(ctx, t, r))
		})
	}
}

func TestFolderLayout(t *testing.T) {
	ctx := context.Background()
	path := containerPath(t, model.ContainerFolder)

	w, err := container.NewWriter(model.ContainerFolder, path)
	require.NoError(t, err)
	writeAll(ctx, t, w)

	data, err := os.ReadFile(filepath.Join(path, "2", "3", "2.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-2-3-2"), data)
}

func TestZipStagingIsPackedOnFinalize(t *testing.T) {
	ctx := context.Background()
	path := containerPath(t, model.ContainerZip)

	w, err := container.NewWriter(model.ContainerZip, path)
	require.NoError(t, err)

	require.NoError(t, w.Put(ctx, tile.Coord{Z: 1, X: 0, Y: 0}, []byte("data")))

	// Before finalize tiles live in the staging folder, not the archive.
	_, err = os.Stat(path + ".part")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Finalize(ctx))
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestMBTilesWriterFlipsRows(t *testing.T) {
	ctx := context.Background()
	path := containerPath(t, model.ContainerMBTiles)

	w, err := container.NewWriter(model.ContainerMBTiles, path)
	require.NoError(t, err)

	// y=0 at z=2 is the top row, which MBTiles stores as TMS row 3. The
	// reader flips it back.
	require.NoError(t, w.Put(ctx, tile.Coord{Z: 2, X: 1, Y: 0}, []byte("top")))
	require.NoError(t, w.Finalize(ctx))
	require.NoError(t, w.Close())

	r, err := container.NewReader(model.ContainerMBTiles, path)
	require.NoError(t, err)
	got := readAll(ctx, t, r)
	assert.Equal(t, map[tile.Coord][]byte{{Z: 2, X: 1, Y: 0}: []byte("top")}, got)
}

func TestDetectKind(t *testing.T) {
	tests := map[string]struct {
		path string
		exp  model.ContainerKind
	}{
		"mbtiles extension": {path: "/data/beijing.mbtiles", exp: model.ContainerMBTiles},
		"zip extension":     {path: "/data/beijing.zip", exp: model.ContainerZip},
		"upper case":        {path: "/data/BEIJING.MBTILES", exp: model.ContainerMBTiles},
		"plain directory":   {path: "/data/beijing", exp: model.ContainerFolder},
		"other extension":   {path: "/data/beijing.db", exp: model.ContainerFolder},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, container.DetectKind(test.path))
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	for _, kind := range []model.ContainerKind{model.ContainerFolder, model.ContainerMBTiles, model.ContainerZip} {
		t.Run(string(kind), func(t *testing.T) {
			path := containerPath(t, kind)

			w, err := container.NewWriter(kind, path)
			require.NoError(t, err)
			writeAll(ctx, t, w)

			require.NoError(t, container.Remove(kind, path))
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			// Removing again must stay silent.
			assert.NoError(t, container.Remove(kind, path))
		})
	}
}

func TestConvert(t *testing.T) {
	ctx := context.Background()

	srcPath := containerPath(t, model.ContainerFolder)
	w, err := container.NewWriter(model.ContainerFolder, srcPath)
	require.NoError(t, err)
	writeAll(ctx, t, w)

	dstPath := containerPath(t, model.ContainerMBTiles)
	src, err := container.NewReader(model.ContainerFolder, srcPath)
	require.NoError(t, err)
	dst, err := container.NewWriter(model.ContainerMBTiles, dstPath)
	require.NoError(t, err)

	n, err := container.Convert(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len(testTiles)), n)
	require.NoError(t, src.Close())
	require.NoError(t, dst.Close())

	r, err := container.NewReader(model.ContainerMBTiles, dstPath)
	require.NoError(t, err)
	assert.Equal(t, testTiles, readAll(ctx, t, r))
}
