package brave

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
)

const DefaultBaseURL = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *helpers.HTTPClient
}

func (s *Search) Search(ctx context.Context, query string, maxResults int) ([]core.SearchResult, error) {
	// https://api.search.brave.com/app/documentation/web-search/get-started
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(maxResults))

	base := DefaultBaseURL
	if s.BaseURL != "" {
		base = strings.TrimRight(s.BaseURL, "/")
	}
	httpClient := s.HTTP
	if httpClient == nil {
		httpClient = helpers.NewHTTPClient(0, 1, 0)
	}

	var raw struct {
		Web struct {
			Results []struct {
				URL         string `json:"url"`
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{"X-Subscription-Token": s.APIKey, "Accept": "application/json"}
	if err := httpClient.DoJSON(ctx, "GET", base+"?"+q.Encode(), headers, nil, &raw); err != nil {
		return nil, err
	}

	var out []core.SearchResult
	for i, r := range raw.Web.Results {
		if i >= maxResults {
			break
		}
		out = append(out, core.SearchResult{URL: r.URL, Title: r.Title, Content: r.Description})
	}
	return out, nil
}
