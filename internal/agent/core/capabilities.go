package core

import (
	"context"
	"encoding/json"
)

// SearchResult is a single hit returned by a SearchProvider.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchProvider runs one web search.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// ExtractedPage is fetched page text keyed by URL.
type ExtractedPage struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// FailedPage is a URL the extractor could not fetch.
type FailedPage struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ExtractResponse is the batch result of a ContentExtractor call.
type ExtractResponse struct {
	Results       []ExtractedPage `json:"results"`
	FailedResults []FailedPage    `json:"failed_results"`
}

// ContentExtractor fetches page content for a batch of URLs. A nil response
// with a nil error is treated as malformed.
type ContentExtractor interface {
	Extract(ctx context.Context, urls []string) (*ExtractResponse, error)
}

// ParseRequest is a structured-output request for one page.
type ParseRequest struct {
	Instructions    string
	PageText        string
	SchemaName      string
	Schema          json.RawMessage
	Temperature     float64
	MaxOutputTokens int
}

// RecordParser turns page text into a JSON object shaped by the schema.
type RecordParser interface {
	ParseRecord(ctx context.Context, req ParseRequest) (json.RawMessage, error)
}

// RunRecorder receives one audit record per stage execution.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec AuditRecord) error
}

// RunRecorderFunc adapts a function to RunRecorder.
type RunRecorderFunc func(ctx context.Context, rec AuditRecord) error

func (f RunRecorderFunc) RecordRun(ctx context.Context, rec AuditRecord) error { return f(ctx, rec) }

// MultiRecorder fans an audit record out to every recorder in order and
// stops at the first error.
type MultiRecorder []RunRecorder

func (m MultiRecorder) RecordRun(ctx context.Context, rec AuditRecord) error {
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordRun(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
