package tabular

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParseEach opens and parses every path with up to workers files in flight,
// invoking fn once per file with a ready row session. The session is closed
// when fn returns. The first error cancels the remaining work through ctx,
// and fn must stop iterating when ctx is done for cancellation to take
// effect promptly.
func ParseEach(ctx context.Context, paths []string, opts ReadOptions, workers int, fn func(ctx context.Context, path string, rows *Rows) error) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := Open(path, opts)
			if err != nil {
				return err
			}
			defer rows.Close()
			return fn(ctx, path, rows)
		})
	}

	return g.Wait()
}
