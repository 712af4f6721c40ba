package container

import (
	"context"
	"fmt"

	"github.com/slok/tilegrab/internal/tile"
)

// Convert copies every tile of src into dst and finalizes it, returning the
// number of tiles copied.
func Convert(ctx context.Context, src Reader, dst Writer) (int64, error) {
	var n int64
	err := src.ForEach(ctx, func(c tile.Coord, data []byte) error {
		if err := dst.Put(ctx, c, data); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("could not copy tiles: %w", err)
	}

	if err := dst.Finalize(ctx); err != nil {
		return n, fmt.Errorf("could not finalize destination: %w", err)
	}

	return n, nil
}
