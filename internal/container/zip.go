package container

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/slok/tilegrab/internal/tile"
)

// zipStagingPath is where a zip writer accumulates tiles before packing.
// ZIP archives cannot be appended to in place, so tiles land in a folder
// staging area first and Finalize packs them. This is what makes pausing
// and resuming a zip task possible.
func zipStagingPath(path string) string {
	return path + ".part"
}

type zipWriter struct {
	path    string
	staging *folderWriter
}

func newZipWriter(path string) (*zipWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create container directory: %w", err)
	}

	staging, err := newFolderWriter(zipStagingPath(path))
	if err != nil {
		return nil, err
	}

	return &zipWriter{path: path, staging: staging}, nil
}

func (w *zipWriter) Put(ctx context.Context, c tile.Coord, data []byte) error {
	return w.staging.Put(ctx, c, data)
}

// Finalize packs the staged tiles into the archive and drops the staging
// area.
func (w *zipWriter) Finalize(ctx context.Context) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	reader := &folderReader{root: w.staging.root}
	err = reader.ForEach(ctx, func(c tile.Coord, data []byte) error {
		// Tiles are already compressed images, storing beats deflating.
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:   zipEntryName(c),
			Method: zip.Store,
		})
		if err != nil {
			return fmt.Errorf("could not create archive entry: %w", err)
		}

		_, err = entry.Write(data)
		return err
	})
	if err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("could not close archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close archive file: %w", err)
	}

	if err := os.RemoveAll(w.staging.root); err != nil {
		return fmt.Errorf("could not remove staging: %w", err)
	}

	return nil
}

func (w *zipWriter) Close() error { return nil }

func zipEntryName(c tile.Coord) string {
	return strconv.Itoa(c.Z) + "/" + strconv.Itoa(c.X) + "/" + strconv.Itoa(c.Y) + ".png"
}

type zipReader struct {
	rc *zip.ReadCloser
}

func newZipReader(path string) (*zipReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("could not open archive: %w", err)
	}

	return &zipReader{rc: rc}, nil
}

func (r *zipReader) ForEach(ctx context.Context, fn func(c tile.Coord, data []byte) error) error {
	for _, entry := range r.rc.File {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if entry.FileInfo().IsDir() {
			continue
		}
		c, ok := coordFromEntry(entry.Name)
		if !ok {
			continue
		}

		data, err := readZipEntry(entry)
		if err != nil {
			return err
		}
		if err := fn(c, data); err != nil {
			return err
		}
	}

	return nil
}

func (r *zipReader) Close() error { return r.rc.Close() }

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open archive entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("could not read archive entry: %w", err)
	}

	return data, nil
}
