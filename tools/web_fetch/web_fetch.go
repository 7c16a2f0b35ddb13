package web_fetch

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch/models"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch/readability"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch/tavily"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxBodyBytes = 2 << 20
	DefaultUserAgent    = "learnpath/1.0 (+https://github.com/mohammad-safakhou/learnpath)"
)

// PageFetcher fetches a single URL and returns its readable text.
type PageFetcher interface {
	Exec(ctx context.Context, url string) (models.Page, error)
}

type FetcherType string

const (
	TavilyFetcherType   FetcherType = "tavily"
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

// Options configures NewContentExtractor. Permit, when set, is consulted
// before any URL is fetched.
type Options struct {
	APIKey       string
	BaseURL      string
	ExtractDepth string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Concurrency  int
	Attempts     int
	Backoff      time.Duration
	Permit       func(url string) bool
}

func NewContentExtractor(fetcherType FetcherType, opts Options) (core.ContentExtractor, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	var inner core.ContentExtractor
	switch fetcherType {
	case TavilyFetcherType:
		if opts.APIKey == "" {
			return nil, errors.New("tavily api key is required")
		}
		inner = &tavily.Extract{
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			Depth:   opts.ExtractDepth,
			HTTP:    helpers.NewHTTPClient(opts.Timeout, opts.Attempts, opts.Backoff),
		}
	case HTTPFetcherType:
		inner = &Batch{
			Fetcher:     readability.NewFetch(opts.Timeout, opts.UserAgent, opts.MaxBodyBytes),
			Concurrency: opts.Concurrency,
		}
	case ChromedpFetcherType:
		inner = &Batch{
			Fetcher:     &chromedp.Fetch{Timeout: opts.Timeout, UserAgent: opts.UserAgent},
			Concurrency: opts.Concurrency,
		}
	default:
		return nil, ErrUnsupportedFetcher
	}
	if opts.Permit == nil {
		return inner, nil
	}
	return &Filtered{Inner: inner, Permit: opts.Permit}, nil
}
