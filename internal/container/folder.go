package container

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/slok/tilegrab/internal/tile"
)

// folderWriter lays tiles out as <root>/<z>/<x>/<y>.png.
type folderWriter struct {
	root string
}

func newFolderWriter(root string) (*folderWriter, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("could not create container root: %w", err)
	}

	return &folderWriter{root: root}, nil
}

func (w *folderWriter) Put(ctx context.Context, c tile.Coord, data []byte) error {
	dir := filepath.Join(w.root, strconv.Itoa(c.Z), strconv.Itoa(c.X))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create tile directory: %w", err)
	}

	file := filepath.Join(dir, fmt.Sprintf("%d.png", c.Y))
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("could not write tile: %w", err)
	}

	return nil
}

func (w *folderWriter) Finalize(ctx context.Context) error { return nil }

func (w *folderWriter) Close() error { return nil }

type folderReader struct {
	root string
}

func newFolderReader(root string) (*folderReader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("could not open container root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("container root %s is not a directory", root)
	}

	return &folderReader{root: root}, nil
}

func (r *folderReader) ForEach(ctx context.Context, fn func(c tile.Coord, data []byte) error) error {
	return filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}

		c, ok := coordFromEntry(filepath.ToSlash(rel))
		if !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read tile: %w", err)
		}

		return fn(c, data)
	})
}

func (r *folderReader) Close() error { return nil }

// coordFromEntry parses a z/x/y.ext entry name into a tile address.
func coordFromEntry(name string) (tile.Coord, bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 {
		return tile.Coord{}, false
	}

	z, errZ := strconv.Atoi(parts[0])
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(strings.TrimSuffix(parts[2], filepath.Ext(parts[2])))
	if errZ != nil || errX != nil || errY != nil {
		return tile.Coord{}, false
	}

	return tile.Coord{Z: z, X: x, Y: y}, true
}
