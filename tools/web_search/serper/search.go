package serper

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
)

const DefaultBaseURL = "https://google.serper.dev"

type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *helpers.HTTPClient
}

type organic struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (s *Search) Search(ctx context.Context, query string, maxResults int) ([]core.SearchResult, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": query, "num": maxResults}
	base := DefaultBaseURL
	if s.BaseURL != "" {
		base = strings.TrimRight(s.BaseURL, "/")
	}
	httpClient := s.HTTP
	if httpClient == nil {
		httpClient = helpers.NewHTTPClient(0, 1, 0)
	}

	var raw struct {
		Organic []organic `json:"organic"`
	}
	if err := httpClient.DoJSON(ctx, "POST", base+"/search", map[string]string{"X-API-KEY": s.APIKey}, payload, &raw); err != nil {
		return nil, err
	}

	var out []core.SearchResult
	for i, it := range raw.Organic {
		if i >= maxResults {
			break
		}
		out = append(out, core.SearchResult{URL: it.Link, Title: it.Title, Content: it.Snippet})
	}
	return out, nil
}
