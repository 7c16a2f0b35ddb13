package provider

import (
	"errors"
	"time"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	openai_provider "github.com/mohammad-safakhou/learnpath/provider/openai"
)

// Client represents the structured-output LLM backends.
type Client string

const (
	OpenAI Client = "openai"
)

var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Options configures a record parser.
type Options struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// NewRecordParser creates the record parser for client.
func NewRecordParser(client Client, opts Options) (core.RecordParser, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key is required")
		}
		httpClient := helpers.NewHTTPClient(opts.Timeout, opts.Attempts, opts.Backoff)
		return openai_provider.NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, httpClient), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
