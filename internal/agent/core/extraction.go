package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/learnpath/internal/logger"
)

const (
	DefaultMaxURLs         = 10
	DefaultMaxOutputTokens = 900
)

// Extraction turns leads into validated program records.
type Extraction struct {
	Extractor       ContentExtractor
	Parser          RecordParser
	MaxURLs         int
	TokenLimit      int
	MaxOutputTokens int
	// Concurrency bounds parallel parser calls; values below 2 run them
	// one at a time.
	Concurrency int
	Logger      logger.Logger
}

func (e *Extraction) Name() Stage { return StageExtract }

func (e *Extraction) Run(ctx context.Context, st State) (Update, error) {
	if len(st.RawLeads) == 0 {
		return Update{Warnings: []string{stageWarning(StageExtract, "raw_leads is empty (unexpected).")}}, nil
	}
	if e.Extractor == nil {
		return Update{}, ErrNoExtractor
	}
	if e.Parser == nil {
		return Update{}, ErrNoRecordParser
	}
	log := loggerOrNop(e.Logger)

	urls := SelectURLs(st.RawLeads, positiveOr(e.MaxURLs, DefaultMaxURLs))
	content, warnings, err := e.fetch(ctx, urls)
	if err != nil {
		return Update{}, err
	}

	type outcome struct {
		record  *ProgramRecord
		warning string
	}
	outcomes := make([]outcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(positiveOr(e.Concurrency, 1))
	for i, u := range urls {
		text, ok := content[u]
		if !ok {
			continue
		}
		i, u := i, u
		g.Go(func() error {
			rec, err := e.parse(gctx, u, text)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("record parsing failed", logger.String("url", u), logger.Error(err))
				outcomes[i].warning = stageWarning(StageExtract, fmt.Sprintf("Parsing failed for %s: %v", u, err))
				return nil
			}
			outcomes[i].record = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Update{}, err
	}

	programs := make([]ProgramRecord, 0, len(urls))
	for _, o := range outcomes {
		if o.warning != "" {
			warnings = append(warnings, o.warning)
		}
		if o.record != nil {
			programs = append(programs, *o.record)
		}
	}
	if len(programs) == 0 {
		warnings = append(warnings, stageWarning(StageExtract, "No programs extracted."))
	}
	log.Info("extraction finished",
		logger.Int("selected_urls", len(urls)),
		logger.Int("fetched", len(content)),
		logger.Int("programs", len(programs)),
		logger.Int("warnings", len(warnings)),
	)
	return Update{ExtractedPrograms: programs, Warnings: warnings}, nil
}

// SelectURLs returns up to limit distinct, non-blank lead URLs in lead order.
func SelectURLs(leads []Lead, limit int) []string {
	seen := make(map[string]struct{}, len(leads))
	out := make([]string, 0, limit)
	for _, l := range leads {
		u := strings.TrimSpace(l.URL)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

// fetch batch-fetches urls and returns trimmed, non-empty content by URL.
// Provider failures degrade to warnings; only cancellation is returned.
func (e *Extraction) fetch(ctx context.Context, urls []string) (map[string]string, []string, error) {
	content := make(map[string]string, len(urls))
	var warnings []string

	resp, err := e.Extractor.Extract(ctx, urls)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return content, append(warnings, stageWarning(StageExtract, fmt.Sprintf("Content extraction failed: %v", err))), nil
	}
	if resp == nil {
		return content, append(warnings, stageWarning(StageExtract, "Content extraction returned a malformed response.")), nil
	}

	wanted := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		wanted[u] = struct{}{}
	}
	seen := make(map[string]struct{}, len(urls))
	for _, page := range resp.Results {
		u := strings.TrimSpace(page.URL)
		if _, ok := wanted[u]; !ok {
			continue
		}
		seen[u] = struct{}{}
		text := strings.TrimSpace(page.RawContent)
		if text == "" {
			warnings = append(warnings, stageWarning(StageExtract, fmt.Sprintf("Empty content for %s", u)))
			continue
		}
		if _, dup := content[u]; !dup {
			content[u] = text
		}
	}
	for _, failed := range resp.FailedResults {
		u := strings.TrimSpace(failed.URL)
		seen[u] = struct{}{}
		if u == "" {
			u = "Unknown URL"
		}
		reason := strings.TrimSpace(failed.Error)
		if reason == "" {
			reason = "Unknown error"
		}
		warnings = append(warnings, stageWarning(StageExtract, fmt.Sprintf("Failed to extract %s: %s", u, reason)))
	}
	for _, u := range urls {
		if _, ok := seen[u]; !ok {
			warnings = append(warnings, stageWarning(StageExtract, fmt.Sprintf("No content returned for %s", u)))
		}
	}
	return content, warnings, nil
}

var errEmptyRecord = errors.New("empty structured response")

func (e *Extraction) parse(ctx context.Context, pageURL, text string) (ProgramRecord, error) {
	raw, err := e.Parser.ParseRecord(ctx, ParseRequest{
		Instructions:    extractionInstructions,
		PageText:        fmt.Sprintf("URL: %s\n\n%s", pageURL, TruncateContent(text, e.TokenLimit)),
		SchemaName:      programSchemaName,
		Schema:          ProgramSchemaJSON(),
		Temperature:     0,
		MaxOutputTokens: positiveOr(e.MaxOutputTokens, DefaultMaxOutputTokens),
	})
	if err != nil {
		return ProgramRecord{}, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ProgramRecord{}, errEmptyRecord
	}
	var rec ProgramRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ProgramRecord{}, fmt.Errorf("malformed structured response: %w", err)
	}
	rec = NormalizeRecord(rec, pageURL)
	if err := ValidateProgramRecord(rec); err != nil {
		return ProgramRecord{}, err
	}
	return rec, nil
}
