package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/tile"
)

// Tiles are seeded in chunked multi-row inserts to keep transactions short
// and stay well under SQLite's bound-parameter limit.
const seedBatchSize = 500

// JournalConfig is the configuration for the SQLite tile journal.
type JournalConfig struct {
	// DB is the task store handle, shared so journal writes join the same
	// WAL and task deletion cascades over journal rows.
	DB     *sql.DB
	Logger log.Logger
}

func (c *JournalConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLiteJournal"})
	return nil
}

// Journal is a SQLite implementation of storage.TileJournal.
type Journal struct {
	db     *sql.DB
	logger log.Logger
}

// NewJournal creates a new SQLite tile journal on an already opened store.
func NewJournal(cfg JournalConfig) (*Journal, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Journal{db: cfg.DB, logger: cfg.Logger}, nil
}

// SeedTiles records every tile of the given ranges as pending. Tiles already
// journaled keep their state, so reseeding after a partial run is harmless.
func (j *Journal) SeedTiles(ctx context.Context, taskID string, ranges []tile.Range) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := make([]any, 0, seedBatchSize*5)
	flush := func() error {
		if len(args) == 0 {
			return nil
		}

		rows := len(args) / 5
		query := `INSERT OR IGNORE INTO tiles (task_id, z, x, y, status) VALUES ` +
			strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?, ?),", rows), ",")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("could not insert tiles: %w", err)
		}

		args = args[:0]
		return nil
	}

	var total int64
	for _, rg := range ranges {
		err := rg.ForEach(func(c tile.Coord) error {
			args = append(args, taskID, c.Z, c.X, c.Y, storage.TileStatusPending)
			total++
			if len(args) == cap(args) {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	j.logger.Debugf("Seeded %d tiles for task %s", total, taskID)
	return nil
}

// PendingTiles returns up to limit tiles still pending, ordered by zoom so a
// run works shallow levels before deep ones.
func (j *Journal) PendingTiles(ctx context.Context, taskID string, limit int) ([]tile.Coord, error) {
	query := `
		SELECT z, x, y FROM tiles
		WHERE task_id = ? AND status = ?
		ORDER BY z, x, y
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, taskID, storage.TileStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query pending tiles: %w", err)
	}
	defer rows.Close()

	var coords []tile.Coord
	for rows.Next() {
		var c tile.Coord
		if err := rows.Scan(&c.Z, &c.X, &c.Y); err != nil {
			return nil, fmt.Errorf("could not scan tile: %w", err)
		}
		coords = append(coords, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return coords, nil
}

// MarkTile sets the journal state of one tile.
func (j *Journal) MarkTile(ctx context.Context, taskID string, c tile.Coord, status storage.TileStatus) error {
	result, err := j.db.ExecContext(
		ctx,
		`UPDATE tiles SET status = ? WHERE task_id = ? AND z = ? AND x = ? AND y = ?`,
		status, taskID, c.Z, c.X, c.Y,
	)
	if err != nil {
		return fmt.Errorf("could not mark tile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tile %d/%d/%d of task %s: %w", c.Z, c.X, c.Y, taskID, model.ErrNotFound)
	}

	return nil
}

// ResetFailedTiles flips every failed tile of the task back to pending.
func (j *Journal) ResetFailedTiles(ctx context.Context, taskID string) (int64, error) {
	result, err := j.db.ExecContext(
		ctx,
		`UPDATE tiles SET status = ? WHERE task_id = ? AND status = ?`,
		storage.TileStatusPending, taskID, storage.TileStatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("could not reset failed tiles: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}

	j.logger.Debugf("Reset %d failed tiles for task %s", n, taskID)
	return n, nil
}

// TileCounts aggregates the journal state of one task.
func (j *Journal) TileCounts(ctx context.Context, taskID string) (storage.TileCounts, error) {
	query := `SELECT status, COUNT(*) FROM tiles WHERE task_id = ? GROUP BY status`

	rows, err := j.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return storage.TileCounts{}, fmt.Errorf("could not count tiles: %w", err)
	}
	defer rows.Close()

	var counts storage.TileCounts
	for rows.Next() {
		var status storage.TileStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return storage.TileCounts{}, fmt.Errorf("could not scan count: %w", err)
		}

		switch status {
		case storage.TileStatusPending:
			counts.Pending = n
		case storage.TileStatusCompleted:
			counts.Completed = n
		case storage.TileStatusFailed:
			counts.Failed = n
		}
	}

	if err := rows.Err(); err != nil {
		return storage.TileCounts{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// DeleteTiles removes every journal row of the task.
func (j *Journal) DeleteTiles(ctx context.Context, taskID string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM tiles WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("could not delete tiles: %w", err)
	}

	j.logger.Debugf("Deleted journal for task %s", taskID)
	return nil
}
