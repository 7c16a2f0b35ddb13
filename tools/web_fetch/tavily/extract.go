package tavily

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
)

const DefaultBaseURL = "https://api.tavily.com"

// Extract calls the Tavily extract endpoint for a batch of URLs.
type Extract struct {
	APIKey  string
	BaseURL string
	Depth   string
	HTTP    *helpers.HTTPClient
}

type extractRequest struct {
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth,omitempty"`
}

func (e *Extract) Extract(ctx context.Context, urls []string) (*core.ExtractResponse, error) {
	base := DefaultBaseURL
	if e.BaseURL != "" {
		base = strings.TrimRight(e.BaseURL, "/")
	}
	httpClient := e.HTTP
	if httpClient == nil {
		httpClient = helpers.NewHTTPClient(0, 1, 0)
	}

	var resp core.ExtractResponse
	headers := map[string]string{"Authorization": "Bearer " + e.APIKey}
	if err := httpClient.DoJSON(ctx, "POST", base+"/extract", headers, extractRequest{URLs: urls, ExtractDepth: e.Depth}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
