package web_fetch

import (
	"context"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

const blockedByPolicy = "blocked by domain policy"

// Filtered drops URLs the policy rejects before delegating to Inner and
// reports each of them as a failed result.
type Filtered struct {
	Inner  core.ContentExtractor
	Permit func(url string) bool
}

func (f *Filtered) Extract(ctx context.Context, urls []string) (*core.ExtractResponse, error) {
	allowed := make([]string, 0, len(urls))
	var blocked []core.FailedPage
	for _, u := range urls {
		if f.Permit(u) {
			allowed = append(allowed, u)
			continue
		}
		blocked = append(blocked, core.FailedPage{URL: u, Error: blockedByPolicy})
	}

	resp := &core.ExtractResponse{Results: []core.ExtractedPage{}, FailedResults: []core.FailedPage{}}
	if len(allowed) > 0 {
		inner, err := f.Inner.Extract(ctx, allowed)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, nil
		}
		resp.Results = append(resp.Results, inner.Results...)
		resp.FailedResults = append(resp.FailedResults, inner.FailedResults...)
	}
	resp.FailedResults = append(resp.FailedResults, blocked...)
	return resp, nil
}
