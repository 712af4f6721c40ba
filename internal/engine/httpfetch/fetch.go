package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/slok/tilegrab/internal/model"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/tile"
)

// fetchTile downloads one tile, retrying transient failures with exponential
// backoff up to the task's retry budget. Client errors (4xx) are permanent:
// the tile will never exist, retrying is pointless.
func (e *Engine) fetchTile(ctx context.Context, p model.Platform, cfg model.TaskConfig, c tile.Coord) ([]byte, error) {
	url, err := platform.TileURL(p, cfg.Layer, c, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	bo := backoff.WithContext(newBackOff(e.retryBaseWait, cfg.RetryBudget), ctx)
	return backoff.RetryWithData(func() ([]byte, error) {
		return e.doFetch(ctx, url)
	}, bo)
}

func newBackOff(baseWait time.Duration, budget int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseWait
	b.Multiplier = 2
	b.MaxInterval = 16 * baseWait
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	if budget < 0 {
		budget = 0
	}
	return backoff.WithMaxRetries(b, uint64(budget))
}

func (e *Engine) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty tile body")
		}
		return data, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, backoff.Permanent(fmt.Errorf("tile request rejected: HTTP %d", resp.StatusCode))

	default:
		return nil, fmt.Errorf("tile server error: HTTP %d", resp.StatusCode)
	}
}

// drainClose empties the body before closing so the connection goes back to
// the pool.
func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
