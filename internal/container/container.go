// Package container implements the on-disk output formats a download task
// can write tiles into: a plain z/x/y folder tree, an MBTiles database or a
// ZIP archive.
package container

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/tile"
)

// Writer writes tiles into an output container. Put is safe for concurrent
// use, Finalize and Close are not.
type Writer interface {
	Put(ctx context.Context, c tile.Coord, data []byte) error
	// Finalize runs once after the last Put of a completed download. The
	// container stays readable without it, it only seals format extras
	// (archive packing, metadata, compaction).
	Finalize(ctx context.Context) error
	Close() error
}

// Reader iterates the tiles of an existing container.
type Reader interface {
	ForEach(ctx context.Context, fn func(c tile.Coord, data []byte) error) error
	Close() error
}

// NewWriter opens a tile writer of the given kind at path, creating the
// container when missing and appending when it already exists.
func NewWriter(kind model.ContainerKind, path string) (Writer, error) {
	switch kind {
	case model.ContainerFolder:
		return newFolderWriter(path)
	case model.ContainerMBTiles:
		return newMBTilesWriter(path)
	case model.ContainerZip:
		return newZipWriter(path)
	}

	return nil, fmt.Errorf("unknown output container %q: %w", kind, model.ErrNotValid)
}

// NewReader opens a tile reader of the given kind at path.
func NewReader(kind model.ContainerKind, path string) (Reader, error) {
	switch kind {
	case model.ContainerFolder:
		return newFolderReader(path)
	case model.ContainerMBTiles:
		return newMBTilesReader(path)
	case model.ContainerZip:
		return newZipReader(path)
	}

	return nil, fmt.Errorf("unknown output container %q: %w", kind, model.ErrNotValid)
}

// DetectKind guesses the container kind from a path's extension. Anything
// that is not a known archive extension is treated as a folder.
func DetectKind(path string) model.ContainerKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mbtiles":
		return model.ContainerMBTiles
	case ".zip":
		return model.ContainerZip
	}

	return model.ContainerFolder
}

// Remove deletes the container at path, including any staging leftovers of
// an interrupted archive run. Removing a missing container is not an error.
func Remove(kind model.ContainerKind, path string) error {
	switch kind {
	case model.ContainerFolder:
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("could not remove folder container: %w", err)
		}
		return nil

	case model.ContainerMBTiles:
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not remove mbtiles container: %w", err)
		}
		return nil

	case model.ContainerZip:
		if err := os.RemoveAll(zipStagingPath(path)); err != nil {
			return fmt.Errorf("could not remove zip staging: %w", err)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not remove zip container: %w", err)
		}
		return nil
	}

	return fmt.Errorf("unknown output container %q: %w", kind, model.ErrNotValid)
}
