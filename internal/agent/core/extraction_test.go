package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func leadState(urls ...string) State {
	st := NewState("req-1", Input{Query: "ux design"})
	leads := make([]Lead, 0, len(urls))
	for _, u := range urls {
		leads = append(leads, Lead{URL: u})
	}
	return st.Merge(Update{RawLeads: leads})
}

func pages(urls ...string) *ExtractResponse {
	resp := &ExtractResponse{}
	for _, u := range urls {
		resp.Results = append(resp.Results, ExtractedPage{URL: u, RawContent: "Course page for " + u})
	}
	return resp
}

func TestSelectURLs(t *testing.T) {
	leads := []Lead{{URL: " https://a "}, {URL: "https://a"}, {URL: ""}, {URL: "https://b"}, {URL: "https://c"}}
	got := SelectURLs(leads, 2)
	if diff := cmp.Diff([]string{"https://a", "https://b"}, got); diff != "" {
		t.Fatalf("SelectURLs (-want +got):\n%s", diff)
	}

	var many []Lead
	for i := 0; i < 15; i++ {
		many = append(many, Lead{URL: fmt.Sprintf("https://site%d.example", i)})
	}
	if got := SelectURLs(many, DefaultMaxURLs); len(got) != 10 {
		t.Fatalf("expected 10 urls, got %d", len(got))
	}
}

func TestExtractionEmptyLeads(t *testing.T) {
	e := &Extraction{Extractor: &stubExtractor{}, Parser: &stubParser{}}
	u, err := e.Run(context.Background(), NewState("r", Input{Query: "q"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Warnings) != 1 || u.Warnings[0] != "Extraction Specialist: raw_leads is empty (unexpected)." {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
	if u.ExtractedPrograms != nil {
		t.Fatalf("extracted_programs must be absent")
	}
}

func TestExtractionMissingCapabilities(t *testing.T) {
	st := leadState("https://a.example")
	if _, err := (&Extraction{Parser: &stubParser{}}).Run(context.Background(), st); !errors.Is(err, ErrNoExtractor) {
		t.Fatalf("expected ErrNoExtractor, got %v", err)
	}
	if _, err := (&Extraction{Extractor: &stubExtractor{}}).Run(context.Background(), st); !errors.Is(err, ErrNoRecordParser) {
		t.Fatalf("expected ErrNoRecordParser, got %v", err)
	}
}

func TestExtractionHappyPath(t *testing.T) {
	a, b, c := "https://a.example/ux", "https://b.example/ux", "https://c.example/ux"
	extractor := &stubExtractor{resp: &ExtractResponse{
		Results: []ExtractedPage{
			{URL: a, RawContent: "UX bootcamp, 2 weeks"},
			{URL: b, RawContent: "   "},
		},
		FailedResults: []FailedPage{{URL: c, Error: "timeout"}, {}},
	}}
	parser := &stubParser{byURL: map[string]string{
		a: programJSON("UX Sprint", "Design School", "2 weeks", "$2,500", "https://wrong.example"),
	}}
	e := &Extraction{Extractor: extractor, Parser: parser}

	u, err := e.Run(context.Background(), leadState(a, b, c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]string{{a, b, c}}, extractor.calls); diff != "" {
		t.Fatalf("extractor calls (-want +got):\n%s", diff)
	}
	if len(u.ExtractedPrograms) != 1 {
		t.Fatalf("expected one program, got %+v", u.ExtractedPrograms)
	}
	rec := u.ExtractedPrograms[0]
	if rec.SourceLink != a || rec.Citation != a {
		t.Fatalf("source link not forced to page URL: %+v", rec)
	}
	if rec.CostUSD == nil || *rec.CostUSD != 2500 {
		t.Fatalf("cost_usd must be derived from cost_text, got %v", rec.CostUSD)
	}
	want := []string{
		"Extraction Specialist: Empty content for " + b,
		"Extraction Specialist: Failed to extract " + c + ": timeout",
		"Extraction Specialist: Failed to extract Unknown URL: Unknown error",
	}
	if diff := cmp.Diff(want, u.Warnings); diff != "" {
		t.Fatalf("warnings (-want +got):\n%s", diff)
	}

	if len(parser.requests) != 1 {
		t.Fatalf("expected one parser call, got %d", len(parser.requests))
	}
	req := parser.requests[0]
	if !strings.HasPrefix(req.PageText, "URL: "+a+"\n\n") || req.Temperature != 0 ||
		req.MaxOutputTokens != DefaultMaxOutputTokens || req.SchemaName != "program_record" || len(req.Schema) == 0 {
		t.Fatalf("unexpected parse request %+v", req)
	}
}

func TestExtractionProviderError(t *testing.T) {
	e := &Extraction{Extractor: &stubExtractor{err: errors.New("502 bad gateway")}, Parser: &stubParser{}}
	u, err := e.Run(context.Background(), leadState("https://a.example"))
	if err != nil {
		t.Fatalf("provider errors must not abort: %v", err)
	}
	want := []string{
		"Extraction Specialist: Content extraction failed: 502 bad gateway",
		"Extraction Specialist: No programs extracted.",
	}
	if diff := cmp.Diff(want, u.Warnings); diff != "" {
		t.Fatalf("warnings (-want +got):\n%s", diff)
	}
	if u.ExtractedPrograms == nil || len(u.ExtractedPrograms) != 0 {
		t.Fatalf("expected empty, present extracted_programs")
	}
}

func TestExtractionMalformedResponse(t *testing.T) {
	e := &Extraction{Extractor: &stubExtractor{}, Parser: &stubParser{}}
	u, err := e.Run(context.Background(), leadState("https://a.example"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Warnings) != 2 || u.Warnings[0] != "Extraction Specialist: Content extraction returned a malformed response." {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
}

func TestExtractionAccountsForUnreturnedURLs(t *testing.T) {
	a, b, c := "https://a.example", "https://b.example", "https://c.example"
	resp := pages(a, "https://unrequested.example")
	resp.FailedResults = []FailedPage{{URL: c, Error: "blocked"}}
	parser := &stubParser{byURL: map[string]string{a: programJSON("P", "Q", "1 week", "Free", a)}}
	e := &Extraction{Extractor: &stubExtractor{resp: resp}, Parser: parser}

	u, err := e.Run(context.Background(), leadState(a, b, c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.ExtractedPrograms) != 1 || len(parser.requests) != 1 {
		t.Fatalf("unrequested pages must not be parsed: %+v", u.ExtractedPrograms)
	}
	want := []string{
		"Extraction Specialist: Failed to extract " + c + ": blocked",
		"Extraction Specialist: No content returned for " + b,
	}
	if diff := cmp.Diff(want, u.Warnings); diff != "" {
		t.Fatalf("warnings (-want +got):\n%s", diff)
	}
}

func TestExtractionParseFailures(t *testing.T) {
	a, b, c := "https://a.example", "https://b.example", "https://c.example"
	parser := &stubParser{
		byURL: map[string]string{
			b: `{"program_name": "x"`,
			c: programJSON("Good", "Prov", "3 months", "Free", c),
		},
		errByURL: map[string]error{"URL: " + a + "\n": errors.New("model refused")},
	}
	e := &Extraction{Extractor: &stubExtractor{resp: pages(a, b, c)}, Parser: parser}
	u, err := e.Run(context.Background(), leadState(a, b, c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.ExtractedPrograms) != 1 || u.ExtractedPrograms[0].ProgramName != "Good" {
		t.Fatalf("unexpected programs %+v", u.ExtractedPrograms)
	}
	if u.ExtractedPrograms[0].CostUSD != nil {
		t.Fatalf("cost_usd must be null for non-numeric cost text")
	}
	if len(u.Warnings) != 2 ||
		!strings.HasPrefix(u.Warnings[0], "Extraction Specialist: Parsing failed for "+a) ||
		!strings.HasPrefix(u.Warnings[1], "Extraction Specialist: Parsing failed for "+b) {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
}

func TestExtractionSchemaViolationDropsRecord(t *testing.T) {
	a := "https://a.example"
	body := `{"program_name":"X","provider":"Y","topics_covered":["one","two"],"format":"online","duration":"1 week",
		"cost_usd":null,"cost_text":"Free","prerequisites":"","location":"","who_this_is_for":"","source_link":"x","citation":"x"}`
	e := &Extraction{Extractor: &stubExtractor{resp: pages(a)}, Parser: &stubParser{byURL: map[string]string{a: body}}}
	u, err := e.Run(context.Background(), leadState(a))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.ExtractedPrograms) != 0 {
		t.Fatalf("record with two topics must be rejected")
	}
	if !strings.Contains(u.Warnings[0], "Parsing failed for "+a) {
		t.Fatalf("unexpected warnings %v", u.Warnings)
	}
}

func TestExtractionConcurrentKeepsLeadOrder(t *testing.T) {
	var urls []string
	byURL := map[string]string{}
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("https://site%d.example/course", i)
		urls = append(urls, u)
		byURL[u] = programJSON(fmt.Sprintf("Program %d", i), "Prov", "4 weeks", "$100", u)
	}
	e := &Extraction{
		Extractor:   &stubExtractor{resp: pages(urls...)},
		Parser:      &stubParser{byURL: byURL},
		Concurrency: 4,
	}
	u, err := e.Run(context.Background(), leadState(urls...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.ExtractedPrograms) != len(urls) {
		t.Fatalf("expected %d programs, got %d", len(urls), len(u.ExtractedPrograms))
	}
	for i, rec := range u.ExtractedPrograms {
		if rec.SourceLink != urls[i] {
			t.Fatalf("program %d out of lead order: %s", i, rec.SourceLink)
		}
	}
}

func TestExtractionTruncatesPageText(t *testing.T) {
	a := "https://a.example"
	resp := &ExtractResponse{Results: []ExtractedPage{{URL: a, RawContent: strings.Repeat("x", 10000)}}}
	parser := &stubParser{byURL: map[string]string{a: programJSON("P", "Q", "1 week", "Free", a)}}
	e := &Extraction{Extractor: &stubExtractor{resp: resp}, Parser: parser, TokenLimit: 100}
	if _, err := e.Run(context.Background(), leadState(a)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := parser.requests[0].PageText
	if !strings.Contains(text, truncationMarker) || len(text) > 400+len(truncationMarker)+len("URL: "+a+"\n\n") {
		t.Fatalf("page text not truncated, len=%d", len(text))
	}
}
