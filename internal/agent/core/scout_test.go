package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestScoutMissingQuery(t *testing.T) {
	s := &Scout{Search: &stubSearch{}}
	u, err := s.Run(context.Background(), NewState("r", Input{Query: "  "}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Warnings) != 1 || u.Warnings[0] != "Adaptive Scout: Missing input.query." {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
	if u.RawLeads != nil {
		t.Fatalf("raw_leads must be absent, got %v", u.RawLeads)
	}
}

func TestScoutRequiresProvider(t *testing.T) {
	_, err := (&Scout{}).Run(context.Background(), NewState("r", Input{Query: "ux"}))
	if !errors.Is(err, ErrNoSearchProvider) {
		t.Fatalf("expected ErrNoSearchProvider, got %v", err)
	}
}

func TestScoutDedupAndSource(t *testing.T) {
	search := &stubSearch{def: []SearchResult{
		{URL: "https://www.Example.com/ux", Title: " UX ", Content: "snip"},
		{URL: " https://www.Example.com/ux ", Title: "dup"},
		{URL: "", Title: "blank"},
		{URL: "https://school.edu/design"},
	}}
	s := &Scout{Search: search}
	u, err := s.Run(context.Background(), NewState("r", Input{Query: "ux design"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(search.calls) != 3 {
		t.Fatalf("expected 3 search calls, got %d", len(search.calls))
	}
	if len(u.RawLeads) != 2 {
		t.Fatalf("expected 2 unique leads, got %+v", u.RawLeads)
	}
	first := u.RawLeads[0]
	if first.Source != "example.com" || first.Title != "UX" || first.Snippet != "snip" {
		t.Fatalf("unexpected lead %+v", first)
	}
	if u.RawLeads[1].Source != "school.edu" {
		t.Fatalf("unexpected source %q", u.RawLeads[1].Source)
	}
	if len(u.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
}

func TestScoutCapsLeads(t *testing.T) {
	results := map[string][]SearchResult{}
	for qi, q := range BuildQueries("ux design", nil) {
		var rs []SearchResult
		for i := 0; i < 6; i++ {
			rs = append(rs, SearchResult{URL: fmt.Sprintf("https://site%d-%d.example", qi, i)})
		}
		results[q] = rs
	}
	search := &stubSearch{results: results}
	u, err := (&Scout{Search: search}).Run(context.Background(), NewState("r", Input{Query: "ux design"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.RawLeads) != DefaultMaxLeads {
		t.Fatalf("expected %d leads, got %d", DefaultMaxLeads, len(u.RawLeads))
	}
	if len(search.calls) != 2 {
		t.Fatalf("scout should stop querying once the cap is reached; calls=%v", search.calls)
	}
	if u.RawLeads[11].URL != "https://site1-5.example" {
		t.Fatalf("unexpected last lead %q", u.RawLeads[11].URL)
	}
}

func TestScoutSearchFailureBecomesWarning(t *testing.T) {
	queries := BuildQueries("ux design", nil)
	search := &stubSearch{
		errs: map[string]error{queries[0]: errors.New("rate limited")},
		def:  []SearchResult{{URL: "https://ok.example"}},
	}
	u, err := (&Scout{Search: search}).Run(context.Background(), NewState("r", Input{Query: "ux design"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.RawLeads) != 1 {
		t.Fatalf("expected leads from the remaining queries, got %+v", u.RawLeads)
	}
	if len(u.Warnings) != 1 || !strings.HasPrefix(u.Warnings[0], "Adaptive Scout: Search failed for query") ||
		!strings.Contains(u.Warnings[0], "rate limited") {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
}

func TestScoutNoResults(t *testing.T) {
	u, err := (&Scout{Search: &stubSearch{}}).Run(context.Background(), NewState("r", Input{Query: "ux design"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.RawLeads) != 0 || len(u.Warnings) != 1 || u.Warnings[0] != "Adaptive Scout: No relevant learning leads found." {
		t.Fatalf("unexpected update %+v", u)
	}
}

func TestScoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	search := &stubSearch{errs: map[string]error{}}
	for _, q := range BuildQueries("ux", nil) {
		search.errs[q] = context.Canceled
	}
	if _, err := (&Scout{Search: search}).Run(ctx, NewState("r", Input{Query: "ux"})); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
