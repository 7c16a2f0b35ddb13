package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
)

const (
	DefaultResultsPerQuery = 6
	DefaultMaxLeads        = 12
)

// Scout discovers candidate pages for the user query.
type Scout struct {
	Search          SearchProvider
	ResultsPerQuery int
	MaxLeads        int
	Logger          logger.Logger
}

func (s *Scout) Name() Stage { return StageScout }

func (s *Scout) Run(ctx context.Context, st State) (Update, error) {
	query := strings.TrimSpace(st.Input.Query)
	if query == "" {
		return Update{Warnings: []string{stageWarning(StageScout, "Missing input.query.")}}, nil
	}
	if s.Search == nil {
		return Update{}, ErrNoSearchProvider
	}
	perQuery := positiveOr(s.ResultsPerQuery, DefaultResultsPerQuery)
	maxLeads := positiveOr(s.MaxLeads, DefaultMaxLeads)
	log := loggerOrNop(s.Logger)

	var warnings []string
	leads := make([]Lead, 0, maxLeads)
	seen := make(map[string]struct{})

queries:
	for _, q := range BuildQueries(query, st.Input.Prefs) {
		results, err := s.Search.Search(ctx, q, perQuery)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Update{}, ctxErr
			}
			log.Warn("search failed", logger.String("query", q), logger.Error(err))
			warnings = append(warnings, stageWarning(StageScout, fmt.Sprintf("Search failed for query %q: %v", q, err)))
			continue
		}
		for _, r := range results {
			u := strings.TrimSpace(r.URL)
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			leads = append(leads, Lead{
				URL:     u,
				Title:   strings.TrimSpace(r.Title),
				Snippet: strings.TrimSpace(r.Content),
				Source:  helpers.SourceHost(u),
			})
			if len(leads) >= maxLeads {
				break queries
			}
		}
	}

	if len(leads) == 0 {
		warnings = append(warnings, stageWarning(StageScout, "No relevant learning leads found."))
	}
	log.Info("scout finished", logger.Int("leads", len(leads)), logger.Int("warnings", len(warnings)))
	return Update{RawLeads: leads, Warnings: warnings}, nil
}

func stageWarning(s Stage, msg string) string {
	return s.DisplayName() + ": " + msg
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func loggerOrNop(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.NewNop()
	}
	return l
}
