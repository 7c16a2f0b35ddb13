package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

type stubSearch struct {
	mu      sync.Mutex
	results map[string][]SearchResult
	errs    map[string]error
	def     []SearchResult
	calls   []string
}

func (s *stubSearch) Search(_ context.Context, query string, maxResults int) ([]SearchResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	s.mu.Unlock()
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	res, ok := s.results[query]
	if !ok {
		res = s.def
	}
	if len(res) > maxResults {
		res = res[:maxResults]
	}
	return res, nil
}

type stubExtractor struct {
	resp  *ExtractResponse
	err   error
	calls [][]string
}

func (s *stubExtractor) Extract(_ context.Context, urls []string) (*ExtractResponse, error) {
	s.calls = append(s.calls, append([]string(nil), urls...))
	return s.resp, s.err
}

type stubParser struct {
	mu       sync.Mutex
	byURL    map[string]string
	errByURL map[string]error
	requests []ParseRequest
}

func (s *stubParser) ParseRecord(_ context.Context, req ParseRequest) (json.RawMessage, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	for u, err := range s.errByURL {
		if strings.Contains(req.PageText, u) {
			return nil, err
		}
	}
	for u, body := range s.byURL {
		if strings.Contains(req.PageText, "URL: "+u+"\n") {
			return json.RawMessage(body), nil
		}
	}
	return nil, fmt.Errorf("no canned response")
}

type captureRecorder struct {
	records []AuditRecord
	err     error
}

func (c *captureRecorder) RecordRun(_ context.Context, rec AuditRecord) error {
	c.records = append(c.records, rec)
	return c.err
}

func programJSON(name, provider, duration, cost, link string) string {
	return fmt.Sprintf(`{
		"program_name": %q,
		"provider": %q,
		"topics_covered": ["research", "wireframing", "prototyping"],
		"format": "online",
		"duration": %q,
		"cost_usd": 99999,
		"cost_text": %q,
		"prerequisites": "Not specified",
		"location": "Not specified",
		"who_this_is_for": "Beginners",
		"source_link": %q,
		"citation": %q
	}`, name, provider, duration, cost, link, link)
}

func record(name, duration, link string) ProgramRecord {
	return ProgramRecord{
		ProgramName:   name,
		Provider:      "Provider",
		TopicsCovered: []string{},
		Format:        "online",
		Duration:      duration,
		CostText:      NotSpecified,
		Prerequisites: NotSpecified,
		Location:      NotSpecified,
		WhoThisIsFor:  NotSpecified,
		SourceLink:    link,
		Citation:      link,
	}
}
