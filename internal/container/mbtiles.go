package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/slok/tilegrab/internal/tile"
)

const mbtilesSchema = `
CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT);
CREATE UNIQUE INDEX IF NOT EXISTS metadata_name ON metadata (name);
CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB);
CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
`

// mbtilesWriter stores tiles in a single MBTiles database. MBTiles addresses
// rows bottom-up (TMS), so the y axis is flipped on every read and write.
type mbtilesWriter struct {
	db   *sql.DB
	name string

	mu      sync.Mutex
	minZoom int
	maxZoom int
	any     bool
}

func newMBTilesWriter(path string) (*mbtilesWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create container directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open mbtiles: %w", err)
	}

	if _, err := db.Exec(mbtilesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create mbtiles schema: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &mbtilesWriter{db: db, name: name}, nil
}

func (w *mbtilesWriter) Put(ctx context.Context, c tile.Coord, data []byte) error {
	row := flipRow(c)
	_, err := w.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`,
		c.Z, c.X, row, data,
	)
	if err != nil {
		return fmt.Errorf("could not write tile: %w", err)
	}

	w.mu.Lock()
	if !w.any || c.Z < w.minZoom {
		w.minZoom = c.Z
	}
	if !w.any || c.Z > w.maxZoom {
		w.maxZoom = c.Z
	}
	w.any = true
	w.mu.Unlock()

	return nil
}

// Finalize writes the metadata table and compacts the database.
func (w *mbtilesWriter) Finalize(ctx context.Context) error {
	w.mu.Lock()
	meta := [][2]string{
		{"name", w.name},
		{"type", "baselayer"},
		{"version", "1"},
		{"format", "png"},
	}
	if w.any {
		meta = append(meta,
			[2]string{"minzoom", strconv.Itoa(w.minZoom)},
			[2]string{"maxzoom", strconv.Itoa(w.maxZoom)},
		)
	}
	w.mu.Unlock()

	for _, kv := range meta {
		_, err := w.db.ExecContext(ctx, `INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`, kv[0], kv[1])
		if err != nil {
			return fmt.Errorf("could not write metadata: %w", err)
		}
	}

	if _, err := w.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("could not compact mbtiles: %w", err)
	}

	return nil
}

func (w *mbtilesWriter) Close() error { return w.db.Close() }

type mbtilesReader struct {
	db *sql.DB
}

func newMBTilesReader(path string) (*mbtilesReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("could not open mbtiles: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open mbtiles: %w", err)
	}

	return &mbtilesReader{db: db}, nil
}

func (r *mbtilesReader) ForEach(ctx context.Context, fn func(c tile.Coord, data []byte) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles ORDER BY zoom_level, tile_column, tile_row`)
	if err != nil {
		return fmt.Errorf("could not query tiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c tile.Coord
		var row int
		var data []byte
		if err := rows.Scan(&c.Z, &c.X, &row, &data); err != nil {
			return fmt.Errorf("could not scan tile: %w", err)
		}

		c.Y = (1 << c.Z) - 1 - row
		if err := fn(c, data); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (r *mbtilesReader) Close() error { return r.db.Close() }

// flipRow converts a top-left y index into the bottom-left TMS row MBTiles
// expects.
func flipRow(c tile.Coord) int {
	return (1 << c.Z) - 1 - c.Y
}
