package content

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParseAll parses texts that belong to different logical streams in
// parallel, at most limit at a time (unbounded when limit <= 0). Results are
// index-aligned with texts. The first parse error cancels the remaining work.
func ParseAll(ctx context.Context, texts [][]byte, limit int) ([]Value, error) {
	out := make([]Value, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, text := range texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := Parse(text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
