package web_search

import (
	"errors"
	"time"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	"github.com/mohammad-safakhou/learnpath/tools/web_search/brave"
	"github.com/mohammad-safakhou/learnpath/tools/web_search/serper"
	"github.com/mohammad-safakhou/learnpath/tools/web_search/tavily"
)

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// Options tunes a searcher. Zero values use the provider defaults.
type Options struct {
	BaseURL     string
	SearchDepth string
	Timeout     time.Duration
	Attempts    int
	Backoff     time.Duration
}

func NewWebSearcher(provider Provider, apiKey string, opts Options) (core.SearchProvider, error) {
	if apiKey == "" {
		return nil, errors.New("search api key is required")
	}
	httpClient := helpers.NewHTTPClient(opts.Timeout, opts.Attempts, opts.Backoff)
	switch provider {
	case TavilyProvider:
		return &tavily.Search{APIKey: apiKey, BaseURL: opts.BaseURL, Depth: opts.SearchDepth, HTTP: httpClient}, nil
	case SerperProvider:
		return &serper.Search{APIKey: apiKey, BaseURL: opts.BaseURL, HTTP: httpClient}, nil
	case BraveProvider:
		return &brave.Search{APIKey: apiKey, BaseURL: opts.BaseURL, HTTP: httpClient}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
