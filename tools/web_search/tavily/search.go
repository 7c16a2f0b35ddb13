package tavily

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
)

const DefaultBaseURL = "https://api.tavily.com"

type Search struct {
	APIKey  string
	BaseURL string
	Depth   string
	HTTP    *helpers.HTTPClient
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type searchResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (s *Search) Search(ctx context.Context, query string, maxResults int) ([]core.SearchResult, error) {
	depth := s.Depth
	if depth == "" {
		depth = "basic"
	}
	var resp searchResponse
	err := client(s.HTTP).DoJSON(ctx, "POST", baseURL(s.BaseURL)+"/search", authHeader(s.APIKey),
		searchRequest{Query: query, MaxResults: maxResults, SearchDepth: depth}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]core.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(out) == maxResults {
			break
		}
		out = append(out, core.SearchResult{URL: r.URL, Title: r.Title, Content: r.Content})
	}
	return out, nil
}

func baseURL(u string) string {
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func authHeader(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}

func client(c *helpers.HTTPClient) *helpers.HTTPClient {
	if c == nil {
		return helpers.NewHTTPClient(0, 1, 0)
	}
	return c
}
