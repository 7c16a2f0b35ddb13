package web_fetch

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

// Batch adapts a PageFetcher to core.ContentExtractor. Results keep the
// order of the requested URLs.
type Batch struct {
	Fetcher     PageFetcher
	Concurrency int
}

func (b *Batch) Extract(ctx context.Context, urls []string) (*core.ExtractResponse, error) {
	type outcome struct {
		text string
		err  error
	}
	outcomes := make([]outcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	limit := b.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := b.Fetcher.Exec(gctx, u)
			outcomes[i] = outcome{text: page.Text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &core.ExtractResponse{Results: []core.ExtractedPage{}, FailedResults: []core.FailedPage{}}
	for i, u := range urls {
		o := outcomes[i]
		if o.err != nil {
			resp.FailedResults = append(resp.FailedResults, core.FailedPage{URL: u, Error: o.err.Error()})
			continue
		}
		resp.Results = append(resp.Results, core.ExtractedPage{URL: u, RawContent: strings.TrimSpace(o.text)})
	}
	return resp, nil
}
